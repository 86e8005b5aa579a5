// Package provider sends prompts and embedding requests to the OpenAI,
// Gemini, Vertex AI and Anthropic HTTP APIs.
package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/demml/potatohead-sub001/auth"
	"github.com/demml/potatohead-sub001/config"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/demml/potatohead-sub001/transport"
	"github.com/rs/zerolog"
)

// ErrUnsupportedProvider is returned for providers without a client.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Client sends prompts to one provider family.
type Client interface {
	// Provider returns the effective provider. A Gemini client authenticated
	// with OAuth reports ProviderVertex.
	Provider() llm.Provider

	// Generate sends the prompt and returns the decoded response.
	Generate(ctx context.Context, p *prompt.Prompt) (response.ChatResponse, error)

	// Embed submits one embedding request for inputs.
	Embed(ctx context.Context, inputs []string, cfg EmbeddingConfig) (response.EmbeddingResponse, error)
}

var (
	sharedOnce      sync.Once
	sharedTransport *transport.Client
)

// SharedTransport returns the process-wide HTTP client.
func SharedTransport() *transport.Client {
	sharedOnce.Do(func() {
		sharedTransport = transport.New(transport.Config{}, zerolog.Nop())
	})
	return sharedTransport
}

type options struct {
	transport  *transport.Client
	env        *config.Env
	logger     zerolog.Logger
	middleware []Middleware
	instrument bool
}

// Option configures New.
type Option func(*options)

// WithTransport uses t instead of the shared transport.
func WithTransport(t *transport.Client) Option {
	return func(o *options) { o.transport = t }
}

// WithEnv reads credentials and URL overrides from env instead of a fresh
// view of the process environment.
func WithEnv(env *config.Env) Option {
	return func(o *options) { o.env = env }
}

// WithLogger sets the logger. Calls are logged at debug.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMiddleware adds middleware around Generate.
func WithMiddleware(mw ...Middleware) Option {
	return func(o *options) { o.middleware = append(o.middleware, mw...) }
}

// WithoutInstrumentation disables metrics and tracing.
func WithoutInstrumentation() Option {
	return func(o *options) { o.instrument = false }
}

// New resolves credentials and endpoints for provider and returns a client.
// Missing credentials are reported by the first request, not here.
func New(ctx context.Context, provider llm.Provider, opts ...Option) (Client, error) {
	o := options{logger: zerolog.Nop(), instrument: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.env == nil {
		o.env = config.LoadEnv()
	}
	if o.transport == nil {
		o.transport = SharedTransport()
	}
	if provider.Family() == llm.ProviderUndefined {
		return nil, llm.NewConstructionError("no provider selected", ErrUnsupportedProvider)
	}

	creds, err := auth.NewResolver(o.env, o.logger).Resolve(ctx, provider)
	if err != nil {
		return nil, err
	}
	ep, err := newEndpoint(provider, creds, o.env)
	if err != nil {
		return nil, err
	}

	var client Client = &httpClient{
		provider: ep.provider,
		creds:    creds,
		endpoint: ep,
		http:     o.transport,
		logger:   o.logger.With().Str("component", "provider").Str("provider", ep.provider.String()).Logger(),
	}
	mw := append([]Middleware{LoggingMiddleware(o.logger)}, o.middleware...)
	client = WrapWithMiddleware(client, mw...)
	if o.instrument {
		client = Instrument(client)
	}
	return client, nil
}
