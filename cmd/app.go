package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"compat-merger/core/archive"
	"compat-merger/core/config"
	"compat-merger/core/job"
	"compat-merger/core/logger"
	"compat-merger/core/resources"
	"compat-merger/core/storage"
	"compat-merger/feature/patcher"

	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"
)

// app bundles what every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
}

func setup() (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return &app{cfg: cfg, logger: logg}, nil
}

// deps wires the patcher against the configured installation. The storage
// client is only created when withStorage is set.
func (a *app) deps(withStorage bool) (patcher.Deps, error) {
	if _, err := os.Stat(a.cfg.Game.Path); err != nil {
		return patcher.Deps{}, fmt.Errorf("game path: %w", err)
	}

	d := patcher.Deps{
		Install:   osfs.New(a.cfg.Game.Path),
		Bundle:    resources.New(osfs.New(a.cfg.Resources.Path), a.logger),
		Extractor: archive.NewExtractor(a.cfg.Archive),
		Patch:     a.cfg.Patch,
		Storage:   a.cfg.Storage,
		Logger:    a.logger,
	}
	if withStorage {
		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return patcher.Deps{}, err
		}
		d.Client = client
	}
	return d, nil
}

func (a *app) service(withStorage bool) (*patcher.Service, error) {
	d, err := a.deps(withStorage)
	if err != nil {
		return nil, err
	}
	return patcher.NewService(d), nil
}

// cancelOnSignal cancels the tracker on the first SIGINT or SIGTERM. Work
// stops at the next record boundary.
func cancelOnSignal(tracker *job.Tracker, l *zap.Logger) (stop func()) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sig:
			l.Warn("Cancelling, waiting for the current record to finish")
			tracker.Cancel()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sig)
		close(done)
	}
}

// reportProgress logs every stage change until ctx is done.
func reportProgress(ctx context.Context, tracker *job.Tracker, l *zap.Logger) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	last := ""
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := tracker.Snapshot()
			if p.Stage == last {
				continue
			}
			last = p.Stage
			l.Info(p.Stage,
				zap.Int("done", p.Done),
				zap.Int("total", p.Total),
				zap.String("overall", fmt.Sprintf("%.0f%%", 100*p.Fraction())))
		}
	}
}

// interrupted turns a cooperative cancellation into a clean exit. Any other
// error is returned unchanged.
func interrupted(err error, l *zap.Logger) error {
	if errors.Is(err, job.ErrCancelled) {
		l.Warn("Cancelled, nothing was written")
		return nil
	}
	return err
}
