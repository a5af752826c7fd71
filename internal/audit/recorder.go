// Package audit persists the structured event trail for authorization
// changes. Grant mutations record their event inside the same transaction
// as the grant row, so a permission change without an audit record cannot
// be committed.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is the structured record emitted for authorization activity.
type Event struct {
	Action        string
	ActorID       string
	ResourceID    string
	ResourceType  string
	PermissionIDs []string
	Result        string
	Meta          map[string]any
	At            time.Time
}

// Recorder writes events into audit_events.
type Recorder struct {
	pool *pgxpool.Pool
}

// NewRecorder returns a new Recorder.
func NewRecorder(pool *pgxpool.Pool) *Recorder {
	return &Recorder{pool: pool}
}

const insertEventSQL = `INSERT INTO audit_events (actor_id, action, resource_type, resource_id, permission_ids, result, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE(NULLIF($8, '0001-01-01 00:00:00+00'::timestamptz), NOW()))`

// Record persists the event using the pool.
func (r *Recorder) Record(ctx context.Context, e Event) error {
	if r == nil || r.pool == nil {
		return errors.New("audit recorder not initialised")
	}
	args, err := eventArgs(e)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, insertEventSQL, args...)
	return err
}

// RecordTx persists the event within the caller's transaction.
func (r *Recorder) RecordTx(ctx context.Context, tx pgx.Tx, e Event) error {
	args, err := eventArgs(e)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, insertEventSQL, args...)
	return err
}

func eventArgs(e Event) ([]any, error) {
	if e.Action == "" || e.ActorID == "" {
		return nil, errors.New("audit event requires action and actor")
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return nil, err
	}
	return []any{e.ActorID, e.Action, e.ResourceType, e.ResourceID, e.PermissionIDs, e.Result, metaJSON, e.At}, nil
}
