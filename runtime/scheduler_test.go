package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/demml/potatohead-sub001/workflow"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) Run(_ context.Context, global map[string]any) (*workflow.Result, error) {
	r.calls.Add(1)
	now := time.Now().UTC()
	return &workflow.Result{WorkflowID: "run", Started: now, Finished: now}, r.err
}

func TestParseSchedule(t *testing.T) {
	base := time.Date(2025, 1, 1, 10, 7, 0, 0, time.UTC)
	tests := []struct {
		spec string
		next time.Time
	}{
		{"*/15 * * * *", time.Date(2025, 1, 1, 10, 15, 0, 0, time.UTC)},
		{"0 0 12 * * *", time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)},
		{"@hourly", time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC)},
		{"@every 5m", base.Add(5 * time.Minute)},
		{"90s", base.Add(90 * time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			sched, err := ParseSchedule(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.next, sched.Next(base))
		})
	}

	for _, bad := range []string{"", "not a schedule", "-5m"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestNewSchedulerRejectsNilRunner(t *testing.T) {
	_, err := NewScheduler(nil, "@hourly", zerolog.Nop())
	assert.Error(t, err)
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	runner := &countingRunner{err: errors.New("flaky")}
	results := make(chan error, 8)

	s, err := NewScheduler(runner, "@every 1s", zerolog.Nop(),
		WithRunImmediately(),
		WithGlobalContext(map[string]any{"k": "v"}),
		WithResultHandler(func(_ *workflow.Result, err error) { results <- err }),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			assert.EqualError(t, err, "flaky")
		case <-time.After(5 * time.Second):
			t.Fatal("scheduled run did not happen")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, s.Runs(), int64(2))
	assert.EqualValues(t, s.Runs(), runner.calls.Load())
}
