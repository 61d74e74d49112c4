// Package sweeper expires stale session thread mappings on a fixed interval.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/user/clawrelay/internal/types"
)

// Sweeper runs the store's sweep on a ticker. It lives only in long-lived
// processes; one-shot invocations trigger sweeps explicitly via RunOnce.
type Sweeper struct {
	store    types.ThreadStore
	maxAge   time.Duration
	interval time.Duration
	cron     *cron.Cron
}

// New creates a Sweeper that removes sessions idle longer than maxAge,
// checking every interval.
func New(store types.ThreadStore, maxAge, interval time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		maxAge:   maxAge,
		interval: interval,
		cron:     cron.New(),
	}
}

// Start registers the periodic sweep and starts the ticker. Sweep failures
// are logged, never fatal to the host process.
func (s *Sweeper) Start() error {
	spec := "@every " + s.interval.String()
	_, err := s.cron.AddFunc(spec, func() {
		if _, err := s.RunOnce(context.Background()); err != nil {
			slog.Error("sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule sweep: %w", err)
	}
	s.cron.Start()
	slog.Info("sweeper started", "interval", s.interval.String(), "max_age", s.maxAge.String())
	return nil
}

// RunOnce performs a single sweep and returns the number of sessions removed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	removed, err := s.store.Sweep(ctx, s.maxAge)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		slog.Info("swept stale sessions", "removed", removed)
	}
	return removed, nil
}

// Stop stops the ticker.
func (s *Sweeper) Stop() {
	s.cron.Stop()
}
