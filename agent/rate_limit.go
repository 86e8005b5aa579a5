package agent

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/rs/zerolog"
)

// Rate limit backoff. A Retry-After hint seeds a gentler curve than the
// blind default.
const (
	DefaultInitialDelay = 1 * time.Second
	DefaultMaxInterval  = 1 * time.Minute

	hintedMultiplier = 1.5
	hintedJitter     = 0.1
	blindMultiplier  = 2.0
	blindJitter      = 0.2
)

// RateLimitHandler tracks per-task backoff after provider rate limits. The
// transport never retries a 429; the workflow asks the handler how long to
// wait before re-queuing the task.
type RateLimitHandler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	backoff map[string]backoff.BackOff
	pending map[string]time.Duration
}

func NewRateLimitHandler(logger zerolog.Logger) *RateLimitHandler {
	return &RateLimitHandler{
		logger:  logger.With().Str("component", "rate_limit").Logger(),
		backoff: make(map[string]backoff.BackOff),
		pending: make(map[string]time.Duration),
	}
}

func newTaskBackoff(retryAfter time.Duration) backoff.BackOff {
	eb := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(DefaultInitialDelay),
		backoff.WithMultiplier(blindMultiplier),
		backoff.WithRandomizationFactor(blindJitter),
		backoff.WithMaxInterval(DefaultMaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	if retryAfter > 0 {
		eb.InitialInterval = retryAfter
		eb.Multiplier = hintedMultiplier
		eb.RandomizationFactor = hintedJitter
		eb.Reset()
	}
	return eb
}

// Observe records err for taskID. Errors other than rate limits are ignored.
func (h *RateLimitHandler) Observe(taskID string, err error) {
	if !llm.IsRateLimitError(err) {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.backoff[taskID]
	if !ok {
		var retryAfter time.Duration
		if d := llm.ExtractRetryAfter(err); d != nil {
			retryAfter = *d
		}
		b = newTaskBackoff(retryAfter)
		h.backoff[taskID] = b
	}
	delay := b.NextBackOff()
	h.pending[taskID] = delay

	h.logger.Warn().
		Str("taskID", taskID).
		Err(err).
		Dur("delay", delay).
		Msg("provider rate limited task")
}

// Delay returns and clears the wait recorded for taskID.
func (h *RateLimitHandler) Delay(taskID string) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	d := h.pending[taskID]
	delete(h.pending, taskID)
	return d
}

// Reset forgets taskID's backoff state after a success.
func (h *RateLimitHandler) Reset(taskID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.backoff, taskID)
	delete(h.pending, taskID)
}

// WaitForRetry sleeps for delay or until ctx ends.
func WaitForRetry(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
