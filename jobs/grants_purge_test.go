package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPurger struct {
	removed int64
	err     error
	calls   int
}

func (s *stubPurger) PurgeExpired(ctx context.Context) (int64, error) {
	s.calls++
	return s.removed, s.err
}

func TestPurgeExpiredHandler(t *testing.T) {
	purger := &stubPurger{removed: 3}
	handler := NewPurgeExpiredHandler(purger, nil)

	task, err := NewPurgeExpiredTask(PurgeExpiredPayload{})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	assert.Equal(t, 1, purger.calls)
}

func TestPurgeExpiredHandlerPropagatesError(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	handler := NewPurgeExpiredHandler(purger, nil)

	task, err := NewPurgeExpiredTask(PurgeExpiredPayload{})
	require.NoError(t, err)

	err = handler(context.Background(), task)
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestPurgeExpiredHandlerSkipsBadPayload(t *testing.T) {
	purger := &stubPurger{}
	handler := NewPurgeExpiredHandler(purger, nil)

	err := handler(context.Background(), asynq.NewTask(TaskGrantsPurgeExpired, []byte("{not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Zero(t, purger.calls)
}

func TestEverySpec(t *testing.T) {
	assert.Equal(t, "@every 1h0m0s", EverySpec(time.Hour))
	assert.Equal(t, "@every 1h30m0s", EverySpec(90*time.Minute))

	// The rendered duration must stay parseable, since asynq feeds the
	// "@every" argument through time.ParseDuration.
	d, err := time.ParseDuration(strings.TrimPrefix(EverySpec(45*time.Minute), "@every "))
	require.NoError(t, err)
	assert.Equal(t, 45*time.Minute, d)
}
