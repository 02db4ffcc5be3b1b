package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gwillem/armsort/pkg/observe"
	"github.com/gwillem/armsort/pkg/sim"
)

type ServeCommand struct {
	Addr      string `long:"addr" default:"127.0.0.1:8080" description:"Listen address (loopback clients only)"`
	Seed      uint64 `long:"seed" description:"Color seed (overrides config)"`
	DB        string `long:"db" description:"Journal database (overrides config)"`
	NoMirror  bool   `long:"no-mirror" description:"Do not drive the configured mirror arm"`
	Autostart bool   `long:"autostart" description:"Start sorting without waiting for an observer"`
	Verbose   bool   `short:"v" long:"verbose" description:"Log every machine event"`
	JSON      bool   `long:"json" description:"Log as JSON"`
}

func (c *ServeCommand) Execute(args []string) error {
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
	srv := observe.NewServer(logger)

	cl, err := openCell(cfg, cellOptions{
		mirror:     !c.NoMirror,
		logger:     logger,
		publishers: []sim.Publisher{srv},
	})
	if err != nil {
		return err
	}
	defer cl.Close()
	srv.Bind(cl.ctl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              c.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := cl.ctl.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("tick loop", "err", err)
		}
	}()
	if c.Autostart {
		cl.ctl.Run()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("observer listening", "addr", c.Addr)
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			stop()
			<-loopDone
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	<-loopDone
	return nil
}
