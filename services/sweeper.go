// services/sweeper.go
package services

import (
	"context"
	"time"

	"kitshed/db"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const sweepLockKey = "overdue:sweep:lock"

// Sweeper runs the overdue sweep on an interval across every tenant with
// checkout rows. A Redis SetNX lease keeps multiple instances from sweeping
// at the same time; the sweep itself is idempotent, so a lost lease only
// costs duplicate work, never duplicate transitions.
type Sweeper struct {
	Repo     *db.Repo
	RDB      *redis.Client
	Log      *zap.Logger
	Interval time.Duration
}

func NewSweeper(repo *db.Repo, rdb *redis.Client, log *zap.Logger, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{Repo: repo, RDB: rdb, Log: log, Interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if ok, _ := s.RDB.SetNX(ctx, sweepLockKey, "1", s.Interval).Result(); !ok {
				continue
			}
			if err := s.RunOnce(ctx); err != nil {
				s.Log.Error("overdue sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce sweeps every tenant immediately, logging and continuing past
// per-row failures.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	tenants, err := s.Repo.CheckoutTenants(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, tenant := range tenants {
		res, err := s.Repo.SweepOverdue(ctx, tenant, now)
		if err != nil {
			s.Log.Error("overdue sweep: tenant failed",
				zap.String("tenant", tenant), zap.Error(err))
			continue
		}
		for id, rowErr := range res.Failed {
			s.Log.Warn("overdue sweep: checkout skipped",
				zap.String("tenant", tenant), zap.Uint("checkout", id), zap.Error(rowErr))
		}
		if res.Marked > 0 {
			s.Log.Info("overdue sweep",
				zap.String("tenant", tenant),
				zap.Int("scanned", res.Scanned),
				zap.Int("marked", res.Marked))
		}
	}
	return nil
}
