// Package journal keeps a SQLite record of sorting runs and their events.
package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	"github.com/gwillem/armsort/pkg/sorter"
	"github.com/gwillem/armsort/pkg/world"
)

// Run is one batch, from start or reset until the next reset.
type Run struct {
	ID         string    `json:"id"`
	Seed       uint64    `json:"seed"`
	Generation uint32    `json:"generation"`
	Objects    int       `json:"objects"`
	Placed     int       `json:"placed"`
	StartedAt  time.Time `json:"started_at"`
}

// Entry is one recorded machine event.
type Entry struct {
	RunID  string      `json:"run_id" db:"run_id"`
	Tick   uint64      `json:"tick" db:"tick"`
	Kind   string      `json:"kind" db:"kind"`
	Phase  string      `json:"phase" db:"phase"`
	Object int         `json:"object" db:"object"`
	Color  world.Color `json:"color,omitempty" db:"color"`
	SlotX  float64     `json:"slot_x,omitempty" db:"slot_x"`
	SlotY  float64     `json:"slot_y,omitempty" db:"slot_y"`
}

type runRow struct {
	ID         string `db:"id"`
	Seed       int64  `db:"seed"`
	Generation int64  `db:"generation"`
	Objects    int    `db:"objects"`
	Placed     int    `db:"placed"`
	StartedAt  int64  `db:"started_at"`
}

func (r runRow) run() Run {
	return Run{
		ID:         r.ID,
		Seed:       uint64(r.Seed),
		Generation: uint32(r.Generation),
		Objects:    r.Objects,
		Placed:     r.Placed,
		StartedAt:  time.UnixMilli(r.StartedAt).UTC(),
	}
}

// Store wraps the journal database.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		generation INTEGER NOT NULL,
		objects INTEGER NOT NULL,
		started_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		phase TEXT NOT NULL,
		object INTEGER NOT NULL,
		color TEXT NOT NULL,
		slot_x REAL NOT NULL,
		slot_y REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_events_run ON events(run_id, kind);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun registers a new run and returns its ID.
func (s *Store) BeginRun(ctx context.Context, seed uint64, generation uint32, objects int) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, seed, generation, objects, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, int64(seed), int64(generation), objects, time.Now().UnixMilli(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return id, nil
}

// Record appends a machine event to a run.
func (s *Store) Record(ctx context.Context, runID string, ev sorter.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (run_id, tick, kind, phase, object, color, slot_x, slot_y) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, int64(ev.Tick), ev.Kind.String(), ev.Phase.String(), ev.Object.Index, string(ev.Color), ev.Slot.X, ev.Slot.Y,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.id, r.seed, r.generation, r.objects, r.started_at,
			COUNT(e.id) AS placed
		FROM runs r
		LEFT JOIN events e ON e.run_id = r.id AND e.kind = 'placed'
		GROUP BY r.id
		ORDER BY r.started_at DESC, r.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	runs := make([]Run, len(rows))
	for i, r := range rows {
		runs[i] = r.run()
	}
	return runs, nil
}

// Run returns a single run.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `
		SELECT r.id, r.seed, r.generation, r.objects, r.started_at,
			(SELECT COUNT(*) FROM events e WHERE e.run_id = r.id AND e.kind = 'placed') AS placed
		FROM runs r WHERE r.id = ?`, id)
	if err != nil {
		return Run{}, fmt.Errorf("query run %s: %w", id, err)
	}
	return row.run(), nil
}

// Entries returns every event of a run in tick order.
func (s *Store) Entries(ctx context.Context, runID string) ([]Entry, error) {
	return s.entries(ctx, runID, "")
}

// Placements returns the placed events of a run in tick order.
func (s *Store) Placements(ctx context.Context, runID string) ([]Entry, error) {
	return s.entries(ctx, runID, sorter.EventPlaced.String())
}

func (s *Store) entries(ctx context.Context, runID, kind string) ([]Entry, error) {
	query := `SELECT run_id, tick, kind, phase, object, color, slot_x, slot_y FROM events WHERE run_id = ?`
	args := []any{runID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id`

	var entries []Entry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	return entries, nil
}

// Export writes a run as zstd-compressed JSON lines: the run header first,
// then one line per event.
func (s *Store) Export(ctx context.Context, runID string, w io.Writer) error {
	run, err := s.Run(ctx, runID)
	if err != nil {
		return err
	}
	entries, err := s.Entries(ctx, runID)
	if err != nil {
		return err
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	je := json.NewEncoder(bw)

	if err := je.Encode(run); err != nil {
		_ = enc.Close()
		return err
	}
	for _, e := range entries {
		if err := je.Encode(e); err != nil {
			_ = enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}
