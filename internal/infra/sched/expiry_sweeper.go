package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"subscriber-payments/internal/infra/metrics"
	red "subscriber-payments/internal/infra/redis"
)

const sweepLockKey = "locks:expiry-sweeper"

// Expirer is the use case call the sweeper drives.
type Expirer interface {
	ExpireStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// ExpirySweeper periodically expires payment requests left open longer than ttl.
type ExpirySweeper struct {
	uc       Expirer
	locker   red.Locker
	interval time.Duration
	ttl      time.Duration
	batch    int
	log      *zerolog.Logger
	now      func() time.Time
}

// NewExpirySweeper builds a sweeper; locker may be nil on single instance setups.
func NewExpirySweeper(uc Expirer, locker red.Locker, interval, ttl time.Duration, batch int, logger *zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	if batch <= 0 {
		batch = 200
	}
	compLog := logger.With().Str("component", "ExpirySweeper").Logger()
	return &ExpirySweeper{
		uc:       uc,
		locker:   locker,
		interval: interval,
		ttl:      ttl,
		batch:    batch,
		log:      &compLog,
		now:      time.Now,
	}
}

func (w *ExpirySweeper) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Dur("ttl", w.ttl).Msg("Starting expiry sweeper")
	// Run once on startup, then on every tick
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry sweeper")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpirySweeper) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.interval)
	defer cancel()
	if _, err := w.SweepOnce(runCtx); err != nil && !errors.Is(err, red.ErrLockHeld) {
		w.log.Error().Err(err).Msg("expiry sweep failed")
	}
}

// SweepOnce expires one round of stale requests, in batches until none are left.
func (w *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	if w.locker != nil {
		token, err := w.locker.TryLock(ctx, sweepLockKey, w.interval)
		if err != nil {
			if errors.Is(err, red.ErrLockHeld) {
				metrics.IncSweepRun("skipped")
				w.log.Debug().Msg("another instance holds the sweep lock")
			} else {
				metrics.IncSweepRun("error")
			}
			return 0, err
		}
		defer func() {
			if err := w.locker.Unlock(context.Background(), sweepLockKey, token); err != nil {
				w.log.Warn().Err(err).Msg("release sweep lock")
			}
		}()
	}

	cutoff := w.now().Add(-w.ttl)
	total := 0
	for {
		n, err := w.uc.ExpireStale(ctx, cutoff, w.batch)
		total += n
		if err != nil {
			metrics.IncSweepRun("error")
			metrics.AddRequestsExpired(total)
			return total, err
		}
		if n < w.batch {
			break
		}
	}
	metrics.IncSweepRun("ok")
	metrics.AddRequestsExpired(total)
	if total > 0 {
		w.log.Info().Int("count", total).Time("cutoff", cutoff).Msg("stale payment requests expired")
	}
	return total, nil
}
