// Package sim runs the sorting machine at a fixed rate and fans its state
// out to the TUI, observers, the run journal and an optional mirror arm.
package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/armsort/pkg/kinematics"
	"github.com/gwillem/armsort/pkg/sorter"
	"github.com/gwillem/armsort/pkg/world"
)

// Snapshot is the state published after every tick.
type Snapshot struct {
	world.Snapshot
	Phase   sorter.Phase
	Task    *sorter.Task
	Tick    uint64
	Running bool
	Time    time.Time
}

// Mirror is a physical arm that follows the simulated joints.
type Mirror interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	WriteJoints(ctx context.Context, angles kinematics.Angles, gripperOpen bool) error
}

// Journal records machine events per run.
type Journal interface {
	BeginRun(ctx context.Context, seed uint64, generation uint32, objects int) (string, error)
	Record(ctx context.Context, runID string, ev sorter.Event) error
}

// Publisher receives every published snapshot. Publish must not block.
type Publisher interface {
	Publish(Snapshot)
}

// Controller owns the tick loop.
type Controller struct {
	machine *sorter.Machine
	hz      int
	seed    uint64
	mirror  Mirror
	journal Journal
	pubs    []Publisher
	logger  *slog.Logger

	mu      sync.Mutex
	running bool
	looping bool
	runID   string
	seq     uint64 // snapshots taken for publishing
	stateCh chan Snapshot
	logCh   chan string

	pubMu     sync.Mutex
	published uint64 // seq of the last published snapshot
}

// Config holds configuration for the controller.
type Config struct {
	Scene      world.Layout
	Motion     sorter.Options
	Hz         int
	Seed       uint64
	Mirror     Mirror      // optional
	Journal    Journal     // optional
	Publishers []Publisher // optional
	Logger     *slog.Logger
}

// NewController builds the world and machine for cfg.
func NewController(cfg Config) (*Controller, error) {
	w, err := world.New(cfg.Scene, world.Seeded(cfg.Seed))
	if err != nil {
		return nil, fmt.Errorf("create world: %w", err)
	}
	m, err := sorter.New(w, cfg.Motion)
	if err != nil {
		return nil, fmt.Errorf("create machine: %w", err)
	}

	if cfg.Hz <= 0 {
		cfg.Hz = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	return &Controller{
		machine: m,
		hz:      cfg.Hz,
		seed:    cfg.Seed,
		mirror:  cfg.Mirror,
		journal: cfg.Journal,
		pubs:    cfg.Publishers,
		logger:  cfg.Logger,
		stateCh: make(chan Snapshot, 1),
		logCh:   make(chan string, 10),
	}, nil
}

// States returns a channel that receives the latest snapshot.
func (c *Controller) States() <-chan Snapshot {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the tick frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Seed returns the seed the object colors are drawn with.
func (c *Controller) Seed() uint64 {
	return c.seed
}

// Run lets the machine advance on subsequent ticks.
func (c *Controller) Run() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		c.running = true
		c.log("Sorting started")
	}
}

// Pause freezes the machine without discarding progress.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		c.running = false
		c.log("Sorting paused")
	}
}

// Running reports whether ticks currently advance the machine.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reset pauses and starts over with a fresh batch. It returns the zeroed
// counts.
func (c *Controller) Reset() world.SortedCounts {
	c.mu.Lock()
	c.running = false
	counts := c.machine.Reset()
	c.runID = ""
	snap := c.snapshotLocked()
	seq := c.nextSeqLocked()
	c.log("Reset: %d new boxes", len(snap.Objects))
	c.mu.Unlock()

	c.publish(seq, snap)
	return counts
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Advance runs n ticks back to back and returns the events they produced.
// Paused ticks advance nothing.
func (c *Controller) Advance(ctx context.Context, n int) []sorter.Event {
	var events []sorter.Event
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		events = append(events, c.step(ctx)...)
	}
	return events
}

// Start runs the tick loop until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.looping {
		c.mu.Unlock()
		return fmt.Errorf("already running")
	}
	c.looping = true
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Enable(ctx); err != nil {
			c.warn("Warning: failed to enable mirror arm: %v", err)
		} else {
			c.info("Mirror arm: torque enabled")
		}
	}

	c.info("Tick loop started at %d Hz (seed %d)", c.hz, c.seed)

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) []sorter.Event {
	c.mu.Lock()
	if c.journal != nil && c.running && c.runID == "" {
		c.beginRunLocked(ctx)
	}
	events := c.machine.Tick(c.running)
	snap := c.snapshotLocked()
	seq := c.nextSeqLocked()
	runID := c.runID
	c.mu.Unlock()

	for _, ev := range events {
		c.handleEvent(ctx, runID, ev)
	}

	if c.mirror != nil && snap.Running {
		if err := c.mirror.WriteJoints(ctx, snap.Arm.Angles, snap.Arm.GripperOpen); err != nil {
			c.warn("Mirror write error: %v", err)
		}
	}

	c.publish(seq, snap)
	return events
}

func (c *Controller) beginRunLocked(ctx context.Context) {
	snap := c.machine.Snapshot()
	id, err := c.journal.BeginRun(ctx, c.seed, snap.Generation, len(snap.Objects))
	if err != nil {
		c.logger.Error("begin journal run", "err", err)
		return
	}
	c.runID = id
	c.logger.Info("journal run started", "run", id, "generation", snap.Generation)
}

func (c *Controller) handleEvent(ctx context.Context, runID string, ev sorter.Event) {
	attrs := []any{"tick", ev.Tick, "kind", ev.Kind.String(), "box", ev.Object.Index, "color", ev.Color}
	switch ev.Kind {
	case sorter.EventPlaced, sorter.EventDrained:
		c.log("%s", ev)
		c.logger.Info("sorter event", attrs...)
	case sorter.EventStalled:
		c.log("%s", ev)
		c.logger.Warn("sorter event", attrs...)
	case sorter.EventFaulted:
		c.log("%s", ev)
		c.logger.Error("sorter event", attrs...)
	default:
		c.logger.Debug("sorter event", attrs...)
	}

	if c.journal != nil && runID != "" {
		if err := c.journal.Record(ctx, runID, ev); err != nil {
			c.logger.Error("journal record", "err", err)
		}
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Snapshot: c.machine.Snapshot(),
		Phase:    c.machine.State().Phase(),
		Tick:     c.machine.Ticks(),
		Running:  c.running,
		Time:     time.Now(),
	}
	if task, ok := sorter.TaskOf(c.machine.State()); ok {
		s.Task = &task
	}
	return s
}

func (c *Controller) nextSeqLocked() uint64 {
	c.seq++
	return c.seq
}

// publish fans s out unless a snapshot taken after it went out first.
func (c *Controller) publish(seq uint64, s Snapshot) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	if seq <= c.published {
		return
	}
	c.published = seq
	c.sendState(s)
	for _, p := range c.pubs {
		p.Publish(s)
	}
}

func (c *Controller) sendState(s Snapshot) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

func (c *Controller) info(format string, args ...any) {
	c.log(format, args...)
	c.logger.Info(fmt.Sprintf(format, args...))
}

func (c *Controller) warn(format string, args ...any) {
	c.log(format, args...)
	c.logger.Warn(fmt.Sprintf(format, args...))
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.looping = false
	c.mu.Unlock()

	if c.mirror != nil {
		if err := c.mirror.Disable(context.Background()); err != nil {
			c.warn("Warning: failed to disable mirror arm: %v", err)
		} else {
			c.info("Mirror arm: torque disabled")
		}
	}
	c.info("Tick loop stopped")
}
