package telemetry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordProviderRequest(t *testing.T) {
	ok := providerRequests.WithLabelValues("openai", "generate", ResultSuccess)
	failed := providerRequests.WithLabelValues("openai", "generate", ResultFailed)
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordProviderRequest("openai", "generate", 10*time.Millisecond, nil)
	RecordProviderRequest("openai", "generate", 10*time.Millisecond, errors.New("boom"))

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestRecordTokensSkipsZero(t *testing.T) {
	c := providerTokens.WithLabelValues("gemini", "prompt")
	before := testutil.ToFloat64(c)
	RecordTokens("gemini", 8, 0)
	assert.Equal(t, before+8, testutil.ToFloat64(c))
}

func TestTasksRunningGauge(t *testing.T) {
	before := testutil.ToFloat64(tasksRunning)
	IncTasksRunning()
	assert.Equal(t, before+1, testutil.ToFloat64(tasksRunning))
	DecTasksRunning()
	assert.Equal(t, before, testutil.ToFloat64(tasksRunning))
}

func TestTracerProviderLifecycle(t *testing.T) {
	tp, err := InitTracerProvider("test", io.Discard)
	require.NoError(t, err)

	_, span := Tracer().Start(context.Background(), "test-span")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, Shutdown(context.Background(), tp))
	assert.NoError(t, Shutdown(context.Background(), nil))
}
