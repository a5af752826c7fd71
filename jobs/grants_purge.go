package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

// GrantPurger deletes expired resource grants.
type GrantPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// NewPurgeExpiredHandler returns the Asynq handler for the purge task.
func NewPurgeExpiredHandler(purger GrantPurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload PurgeExpiredPayload
		if len(t.Payload()) > 0 {
			if err := json.Unmarshal(t.Payload(), &payload); err != nil {
				return asynq.SkipRetry
			}
		}
		removed, err := purger.PurgeExpired(ctx)
		if err != nil {
			if logger != nil {
				logger.Error("purge expired grants", slog.Any("error", err))
			}
			return err
		}
		if logger != nil && removed > 0 {
			logger.Info("purged expired grants", slog.Int64("removed", removed))
		}
		return nil
	}
}
