package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/petrijr/approvo/pkg/api"
)

// DefaultInterval is the sweep interval used when Config.Interval is zero.
const DefaultInterval = time.Minute

// Config controls a Watcher. The zero value gives a usable watcher
// sweeping every DefaultInterval with the default slog logger.
type Config struct {
	// Interval between sweeps. Zero means DefaultInterval.
	Interval time.Duration

	// Logger receives sweep outcomes. Nil means slog.Default().
	Logger *slog.Logger
}

// Watcher periodically expires overdue instances through an Engine.
// It owns no state of its own; every sweep re-reads the store, so
// multiple watchers against the same backend are safe. The engine's
// versioned updates guarantee each overdue instance is expired exactly
// once regardless of how many watchers race on it.
type Watcher struct {
	engine   api.Engine
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Watcher with default settings.
func New(engine api.Engine) *Watcher {
	return NewWithConfig(engine, Config{})
}

// NewWithConfig creates a Watcher with the given configuration.
func NewWithConfig(engine api.Engine, cfg Config) *Watcher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		engine:   engine,
		interval: interval,
		logger:   logger,
	}
}

// SweepOnce runs a single sweep and returns how many instances were
// expired. It is safe to call concurrently with Run.
func (w *Watcher) SweepOnce(ctx context.Context) (int, error) {
	return w.engine.SweepOverdue(ctx)
}

// Run sweeps at the configured interval until ctx is cancelled. Sweep
// errors are logged and do not stop the loop; transient backend
// failures are retried on the next tick. Run returns ctx.Err() once
// the context is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			expired, err := w.SweepOnce(ctx)
			if err != nil {
				w.logger.Error("overdue sweep failed", slog.Any("error", err))
				continue
			}
			if expired > 0 {
				w.logger.Info("overdue sweep", slog.Int("expired", expired))
			}
		}
	}
}
