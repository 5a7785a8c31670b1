package service

// scheduler.go keeps the served catalog in step with its source.
//
// The refresh loop reloads on a fixed interval until its context is
// cancelled. A failed reload is logged and the previous snapshot keeps
// serving; the next tick tries again.

import (
	"context"
	"time"
)

// RefreshConfig configures the refresh scheduler.
type RefreshConfig struct {
	Interval  time.Duration // 0 disables periodic reloads
	Immediate bool          // reload once before the first tick
}

// StartRefreshScheduler reloads the catalog every cfg.Interval and returns
// when ctx is done. It returns at once when the interval is not positive
// or no source is configured.
func (c *Catalog) StartRefreshScheduler(ctx context.Context, cfg RefreshConfig) {
	if cfg.Interval <= 0 || c.source == nil {
		c.logger.Info("catalog refresh disabled")
		return
	}

	c.logger.Info("catalog refresh scheduler started",
		"interval", cfg.Interval,
		"source", c.source.Name(),
	)

	if cfg.Immediate {
		c.runRefresh(ctx)
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("catalog refresh scheduler stopped")
			return
		case <-ticker.C:
			c.runRefresh(ctx)
		}
	}
}

// runRefresh performs one reload cycle.
func (c *Catalog) runRefresh(ctx context.Context) {
	start := time.Now()
	snap, err := c.Reload(ctx)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Error("catalog refresh failed", "error", err)
		}
		return
	}
	c.logger.Info("catalog refresh completed",
		"snapshot_id", snap.ID,
		"products", snap.Store.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
