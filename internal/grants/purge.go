package grants

import (
	"context"
	"log/slog"
	"time"
)

// Purger removes expired resource grants without pulling in the full grant
// service. Used by the background worker.
type Purger struct {
	store  Store
	logger *slog.Logger
}

// NewPurger constructs a Purger instance.
func NewPurger(store Store, logger *slog.Logger) *Purger {
	return &Purger{store: store, logger: logger}
}

// PurgeExpired deletes grants whose expiry is at or before now.
func (p *Purger) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := p.store.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if p.logger != nil && removed > 0 {
		p.logger.Info("expired grants removed", slog.Int64("count", removed))
	}
	return removed, nil
}
