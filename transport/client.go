// Package transport is the shared HTTP client used by every provider.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/telemetry"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Defaults applied by New.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxAttempts     = 3
	DefaultMaxIdleConns    = 100
	DefaultIdleConnTimeout = 90 * time.Second
	DefaultBackoffMax      = 10 * time.Second
)

// Config holds configuration for the HTTP client.
type Config struct {
	Timeout         time.Duration     // Per-send timeout (default: 30 seconds)
	MaxAttempts     int               // Sends per request on connection or timeout failures (default: 3)
	BackoffInitial  time.Duration     // First retry delay; 0 retries immediately
	BackoffMax      time.Duration     // Upper bound on retry delay (default: 10 seconds)
	Headers         map[string]string // Sent with every request
	MaxIdleConns    int               // Maximum idle connections (default: 100)
	IdleConnTimeout time.Duration     // Idle connection timeout (default: 90 seconds)
}

func (c Config) withDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	return c
}

// Response is a successful HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Attempts   int
}

// Client sends JSON requests with bounded retry on transport failures.
// It is safe for concurrent use and immutable after construction.
type Client struct {
	client *resty.Client
	config Config
	logger zerolog.Logger
}

// New creates a client.
func New(config Config, logger zerolog.Logger) *Client {
	config = config.withDefaults()
	logger = logger.With().Str("component", "transport").Logger()

	client := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{logger}).
		SetRetryCount(0)
	for k, v := range config.Headers {
		client.SetHeader(k, v)
	}

	// Start with Go's secure defaults and raise pooling limits.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = config.MaxIdleConns
	transport.MaxIdleConnsPerHost = config.MaxIdleConns
	transport.IdleConnTimeout = config.IdleConnTimeout
	client.SetTransport(transport)

	return &Client{
		client: client,
		config: config,
		logger: logger,
	}
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}

func (c *Client) retryPolicy(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff = &backoff.ZeroBackOff{}
	if c.config.BackoffInitial > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = c.config.BackoffInitial
		eb.Multiplier = 2.0
		eb.MaxInterval = c.config.BackoffMax
		eb.MaxElapsedTime = 0
		eb.RandomizationFactor = 0.2 // 20% jitter
		eb.Reset()
		b = eb
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.config.MaxAttempts-1)), ctx)
}

// PostJSON posts body as JSON to url. Connection failures and timeouts are
// retried up to MaxAttempts sends. Any HTTP status >= 400 is returned at once
// as a completion error carrying the raw body.
func (c *Client) PostJSON(ctx context.Context, url string, body any, headers map[string]string) (*Response, error) {
	var (
		result   *Response
		attempts int
	)

	operation := func() error {
		attempts++
		resp, err := c.client.R().
			SetContext(ctx).
			SetHeaders(headers).
			SetBody(body).
			Post(url)
		if err != nil {
			return c.classify(ctx, err, attempts)
		}

		telemetry.RecordHTTPResponse(resp.StatusCode())
		if resp.StatusCode() >= http.StatusBadRequest {
			c.logger.Debug().
				Str("url", url).
				Int("status", resp.StatusCode()).
				Msg("Request returned error status")
			return backoff.Permanent(llm.NewCompletionError(resp.StatusCode(), string(resp.Body()), retryAfter(resp.Header())))
		}

		result = &Response{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
			Header:     resp.Header(),
			Attempts:   attempts,
		}
		return nil
	}

	notify := func(err error, next time.Duration) {
		telemetry.RecordTransportRetry()
		c.logger.Warn().
			Err(err).
			Str("url", url).
			Int("attempt", attempts).
			Dur("retry_in", next).
			Msg("Transport failure, retrying")
	}

	if err := backoff.RetryNotify(operation, c.retryPolicy(ctx), notify); err != nil {
		var llmErr *llm.Error
		if !errors.As(err, &llmErr) {
			// backoff returns the bare context error when cancelled between sends
			err = llm.NewRequestError("request cancelled", err)
		}
		return nil, err
	}
	return result, nil
}

// classify maps a send failure to an llm error. Cancellation stops retrying.
func (c *Client) classify(ctx context.Context, err error, attempt int) error {
	if ctx.Err() != nil {
		return backoff.Permanent(llm.NewRequestError("request cancelled", err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return llm.NewTimeoutError(fmt.Sprintf("request timed out (attempt %d)", attempt), err)
	}
	return llm.NewRequestError(fmt.Sprintf("failed to execute request (attempt %d)", attempt), err)
}

func retryAfter(h http.Header) *time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		d := time.Duration(seconds) * time.Second
		return &d
	}
	if t, err := http.ParseTime(v); err == nil {
		d := time.Until(t)
		if d > 0 {
			return &d
		}
	}
	return nil
}

// restyLogger routes resty's internal messages to zerolog.
type restyLogger struct {
	logger zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...interface{}) {
	l.logger.Error().Msgf(format, v...)
}

func (l restyLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn().Msgf(format, v...)
}

func (l restyLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug().Msgf(format, v...)
}
