package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartExpiredTokenCleaner periodically deletes refresh tokens that are
// revoked or past their expiry. Requests themselves are never deleted
// (audit trail); expired approvals are filtered at read time instead.
func StartExpiredTokenCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
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
				res, err := db.ExecContext(ctx, `
                    DELETE FROM refresh_tokens
                     WHERE revoked = true
                        OR expires_at < now()
                `)
				if err != nil {
					log.Error("failed to clean expired refresh tokens", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired refresh tokens", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
