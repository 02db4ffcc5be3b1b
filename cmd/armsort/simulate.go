package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/armsort/pkg/sim"
	"github.com/gwillem/armsort/pkg/sorter"
)

type SimulateCommand struct {
	Ticks   int    `long:"ticks" default:"20000" description:"Give up after this many ticks"`
	Seed    uint64 `long:"seed" description:"Color seed (overrides config)"`
	DB      string `long:"db" description:"Journal database (overrides config)"`
	Verbose bool   `short:"v" long:"verbose" description:"Log every machine event"`
	JSON    bool   `long:"json" description:"Log as JSON"`
}

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// simResult is how a headless run ended.
type simResult struct {
	snap    sim.Snapshot
	drained bool
	faulted bool
	stalls  int
}

// simulate runs ctl until the batch is drained, the machine faults or the
// tick budget runs out.
func simulate(ctx context.Context, ctl *sim.Controller, budget int) simResult {
	var res simResult
	ctl.Run()
	for i := 0; i < budget && ctx.Err() == nil; i++ {
		for _, ev := range ctl.Advance(ctx, 1) {
			switch ev.Kind {
			case sorter.EventDrained:
				res.drained = true
			case sorter.EventFaulted:
				res.faulted = true
			case sorter.EventStalled:
				res.stalls++
			}
		}
		if res.drained || res.faulted {
			break
		}
	}
	ctl.Pause()
	res.snap = ctl.Snapshot()
	return res
}

func (c *SimulateCommand) Execute(args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Seed != 0 {
		cfg.Seed = c.Seed
	}
	if c.DB != "" {
		cfg.Journal = c.DB
	}

	logger := newLogger(os.Stderr, c.Verbose, c.JSON)
	cl, err := openCell(cfg, cellOptions{logger: logger})
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	res := simulate(ctx, cl.ctl, c.Ticks)
	logger.Info("simulation finished",
		"ticks", res.snap.Tick,
		"sorted", res.snap.Counts.Total(),
		"objects", len(res.snap.Objects),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)

	printSummary(res, cl.ctl.Hz(), cl.ctl.Seed())
	if !res.drained {
		return fmt.Errorf("batch not sorted after %d ticks (%s)", res.snap.Tick, res.snap.Phase)
	}
	return nil
}

func printSummary(res simResult, hz int, seed uint64) {
	s := res.snap

	fmt.Println()
	fmt.Println(headerStyle.Render("armsort simulation"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━"))
	fmt.Printf("Seed %d, %d ticks (%.1fs at %d Hz)\n\n", seed, s.Tick, float64(s.Tick)/float64(hz), hz)

	queued := make(map[string]int)
	for _, o := range s.Objects {
		if !o.Sorted {
			queued[string(o.Color)]++
		}
	}

	rows := make([][]string, 0, len(s.Zones))
	for _, z := range s.Zones {
		rows = append(rows, []string{
			string(z.Color),
			fmt.Sprintf("%d", s.Counts[z.Color]),
			fmt.Sprintf("%d", queued[string(z.Color)]),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Zone", "Sorted", "Left").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			if col == 0 && row >= 0 && row < len(s.Zones) {
				return colorStyle(s.Zones[row].Color).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	fmt.Println(t.Render())
	fmt.Println()

	switch {
	case res.drained:
		fmt.Println(successStyle.Render(fmt.Sprintf("All %d boxes sorted.", s.Counts.Total())))
	case res.faulted:
		fmt.Println(failStyle.Render("Faulted: a target stayed out of reach."))
	default:
		fmt.Println(failStyle.Render(fmt.Sprintf("Stopped in %s with %d of %d boxes sorted.", s.Phase, s.Counts.Total(), len(s.Objects))))
	}
	if res.stalls > 0 {
		fmt.Println(dimStyle.Render(fmt.Sprintf("%d stall(s) on unreachable targets", res.stalls)))
	}
}
