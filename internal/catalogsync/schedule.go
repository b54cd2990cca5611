package catalogsync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunEvery calls fn immediately and then again interval after each run
// ends, until ctx is done. Runs never overlap. Errors from fn are logged
// and the schedule continues.
func RunEvery(ctx context.Context, interval time.Duration, fn func(ctx context.Context) error) error {
	log := zap.L().With(zap.String("component", "catalogsync.schedule"))
	if interval <= 0 {
		interval = 2 * time.Hour
	}

	for {
		started := time.Now()
		if err := fn(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("scheduled sync failed", zap.Error(err))
		}
		log.Info("next sync scheduled",
			zap.Duration("took", time.Since(started)),
			zap.Duration("interval", interval),
		)

		if !sleep(ctx, interval) {
			return nil
		}
	}
}
