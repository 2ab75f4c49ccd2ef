// Package reaper enforces the retention window: it periodically deletes
// every catalog entry older than the window through the regular delete path.
package reaper

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/BAPONBARMON/file-server/internal/metrics"
	"github.com/BAPONBARMON/file-server/internal/models"
	"github.com/rs/zerolog/log"
)

const (
	DefaultWindow   = 5 * 24 * time.Hour
	DefaultInterval = time.Hour
)

type Lister interface {
	ListAllEntries(ctx context.Context) ([]models.Entry, error)
}

// Expirer deletes one entry, including its blob and descendants.
type Expirer interface {
	Expire(ctx context.Context, id string) error
}

type Config struct {
	Window   time.Duration
	Interval time.Duration
	Now      func() time.Time
}

type Reaper struct {
	catalog  Lister
	expirer  Expirer
	window   time.Duration
	interval time.Duration
	now      func() time.Time
	scanning atomic.Bool
}

func New(catalog Lister, expirer Expirer, cfg Config) *Reaper {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reaper{
		catalog:  catalog,
		expirer:  expirer,
		window:   cfg.Window,
		interval: cfg.Interval,
		now:      cfg.Now,
	}
}

// SweepResult summarises one pass over the catalog.
type SweepResult struct {
	Scanned     int
	Expired     int
	AlreadyGone int
	Failed      int
}

// Scanning reports whether a sweep is in progress.
func (r *Reaper) Scanning() bool {
	return r.scanning.Load()
}

// Run sweeps immediately and then again interval after each sweep finishes,
// so sweeps never overlap. It returns when ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	log.Info().Dur("window", r.window).Dur("interval", r.interval).Msg("retention reaper started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("retention reaper stopped")
			return
		case <-timer.C:
			if _, err := r.Sweep(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("retention sweep failed")
			}
			timer.Reset(r.interval)
		}
	}
}

// Sweep deletes every entry whose age exceeds the window. An entry that
// disappears before the reaper gets to it counts as already handled.
func (r *Reaper) Sweep(ctx context.Context) (SweepResult, error) {
	r.scanning.Store(true)
	defer r.scanning.Store(false)

	started := time.Now()
	defer func() {
		metrics.ReaperSweepDuration.Observe(time.Since(started).Seconds())
	}()

	var result SweepResult

	entries, err := r.catalog.ListAllEntries(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list entries: %w", err)
	}

	now := r.now()
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Scanned++
		if entry.Age(now) <= r.window {
			continue
		}

		err := r.expirer.Expire(ctx, entry.ID)
		switch {
		case err == nil:
			result.Expired++
		case errors.Is(err, models.ErrNotFound):
			result.AlreadyGone++
			log.Debug().Str("entry_id", entry.ID).Msg("expired entry already removed")
		default:
			result.Failed++
			metrics.ReaperErrors.Inc()
			log.Warn().Err(err).Str("entry_id", entry.ID).Msg("failed to delete expired entry")
		}
	}

	metrics.ReaperSweeps.Inc()
	log.Info().
		Int("scanned", result.Scanned).
		Int("expired", result.Expired).
		Int("already_gone", result.AlreadyGone).
		Int("failed", result.Failed).
		Dur("took", time.Since(started)).
		Msg("retention sweep finished")

	return result, nil
}
