package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"

	"github.com/gwillem/armsort/pkg/journal"
	"github.com/gwillem/armsort/pkg/robot"
	"github.com/gwillem/armsort/pkg/sim"
)

// loadConfig reads the --config file. A missing file yields the defaults.
func loadConfig() (*robot.Config, bool, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) {
		return robot.DefaultConfig(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return cfg, true, nil
}

// newLogger returns a text or JSON slog logger on w.
func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// cell is a controller plus the resources it was built on.
type cell struct {
	ctl     *sim.Controller
	journal *journal.Store
	arm     *robot.Arm
}

type cellOptions struct {
	mirror     bool
	logger     *slog.Logger
	publishers []sim.Publisher
}

func openCell(cfg *robot.Config, o cellOptions) (*cell, error) {
	if cfg.Seed == 0 {
		cfg.Seed = rand.Uint64()
	}
	for _, p := range cfg.Scene.Unreachable(cfg.Motion.HoverHeight) {
		o.logger.Warn("target out of reach", "x", p.X, "y", p.Y)
	}

	c := &cell{}
	scfg := sim.Config{
		Scene:      cfg.Scene,
		Motion:     cfg.Motion,
		Hz:         cfg.Hz,
		Seed:       cfg.Seed,
		Logger:     o.logger,
		Publishers: o.publishers,
	}

	if cfg.Journal != "" {
		store, err := journal.Open(cfg.Journal)
		if err != nil {
			return nil, err
		}
		c.journal = store
		scfg.Journal = store
	}

	if o.mirror && cfg.Mirror != nil {
		arm, err := robot.NewArm(*cfg.Mirror)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("mirror arm: %w", err)
		}
		c.arm = arm
		scfg.Mirror = arm
	}

	ctl, err := sim.NewController(scfg)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.ctl = ctl
	return c, nil
}

func (c *cell) Close() {
	if c.arm != nil {
		c.arm.Close()
	}
	if c.journal != nil {
		c.journal.Close()
	}
}
