package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartStaleAnalysisSweeper fails analyses stuck in processing with interval.
// A pipeline that crashed without reaching its error boundary would otherwise
// leave its row in processing forever; the sweeper flips such rows to failed
// so pollers see a terminal state.
func StartStaleAnalysisSweeper(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	maxAge time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-maxAge)
				res, err := db.ExecContext(ctx, `
                    UPDATE video_analysis
                       SET status = 'failed',
                           result = '{"error":"analysis timed out","stage":"sweeper"}',
                           updated_at = now()
                     WHERE status = 'processing'
                       AND updated_at < $1
                `, cutoff)
				if err != nil {
					log.Error("failed to sweep stale analyses", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("swept stale analyses", zap.Int64("failed", rows))
				}
			}
		}
	}()
}
