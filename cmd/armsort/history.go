package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armsort/pkg/journal"
)

type HistoryCommand struct {
	DB     string `long:"db" description:"Journal database (overrides config)"`
	Limit  int    `long:"limit" default:"20" description:"Number of runs to list"`
	Export string `long:"export" value-name:"RUN" description:"Export a run as zstd-compressed JSON lines"`
	Out    string `short:"o" long:"out" description:"Export file (default <run>.jsonl.zst)"`
}

func (c *HistoryCommand) Execute(args []string) error {
	path := c.DB
	if path == "" {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Journal
	}
	if path == "" {
		return fmt.Errorf("no journal configured: set \"journal\" in %s or pass --db", opts.Config)
	}

	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if c.Export != "" {
		return c.export(ctx, store)
	}

	runs, err := store.Runs(ctx, c.Limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%d", r.Seed),
			fmt.Sprintf("%d", r.Generation),
			fmt.Sprintf("%d / %d", r.Placed, r.Objects),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Run", "Started", "Seed", "Batch", "Sorted").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 4 && row >= 0 && row < len(runs) && runs[row].Placed == runs[row].Objects {
				return successStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Println(t.Render())
	return nil
}

func (c *HistoryCommand) export(ctx context.Context, store *journal.Store) error {
	out := c.Out
	if out == "" {
		out = c.Export + ".jsonl.zst"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := store.Export(ctx, c.Export, f); err != nil {
		f.Close()
		os.Remove(out)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("Exported run %s to %s\n", c.Export, out)
	return nil
}
