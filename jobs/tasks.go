// Package jobs wires background tasks onto Asynq.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskGrantsPurgeExpired removes expired resource grants. Evaluation is
	// lazy and never depends on this task running.
	TaskGrantsPurgeExpired = "grants:purge_expired"
)

// PurgeExpiredPayload carries the requested cutoff for the purge run. A
// zero cutoff means "now at execution time".
type PurgeExpiredPayload struct {
	Cutoff time.Time `json:"cutoff,omitempty"`
}

// NewPurgeExpiredTask constructs an Asynq task.
func NewPurgeExpiredTask(payload PurgeExpiredPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskGrantsPurgeExpired, data), nil
}

// EverySpec renders a duration as an Asynq "@every" cron spec.
func EverySpec(d time.Duration) string {
	return "@every " + d.String()
}
