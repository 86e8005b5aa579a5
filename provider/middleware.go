package provider

import (
	"context"

	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/rs/zerolog"
)

// Middleware provides hooks for decorating Client calls.
type Middleware interface {
	// BeforeRequest is called before making an API request.
	// It can modify the prompt or return an error to abort the request.
	BeforeRequest(ctx context.Context, p *prompt.Prompt) (*prompt.Prompt, error)

	// AfterResponse is called after receiving a response.
	// It can modify the response or return an error.
	AfterResponse(ctx context.Context, p *prompt.Prompt, resp response.ChatResponse) (response.ChatResponse, error)

	// OnError is called when an error occurs.
	// It can return a modified error or nil to use the original error.
	OnError(ctx context.Context, p *prompt.Prompt, err error) error
}

// MiddlewareFunc is a function type that implements Middleware.
type MiddlewareFunc struct {
	BeforeRequestFunc func(ctx context.Context, p *prompt.Prompt) (*prompt.Prompt, error)
	AfterResponseFunc func(ctx context.Context, p *prompt.Prompt, resp response.ChatResponse) (response.ChatResponse, error)
	OnErrorFunc       func(ctx context.Context, p *prompt.Prompt, err error) error
}

// BeforeRequest calls the BeforeRequestFunc if set.
func (f MiddlewareFunc) BeforeRequest(ctx context.Context, p *prompt.Prompt) (*prompt.Prompt, error) {
	if f.BeforeRequestFunc != nil {
		return f.BeforeRequestFunc(ctx, p)
	}
	return p, nil
}

// AfterResponse calls the AfterResponseFunc if set.
func (f MiddlewareFunc) AfterResponse(ctx context.Context, p *prompt.Prompt, resp response.ChatResponse) (response.ChatResponse, error) {
	if f.AfterResponseFunc != nil {
		return f.AfterResponseFunc(ctx, p, resp)
	}
	return resp, nil
}

// OnError calls the OnErrorFunc if set.
func (f MiddlewareFunc) OnError(ctx context.Context, p *prompt.Prompt, err error) error {
	if f.OnErrorFunc != nil {
		return f.OnErrorFunc(ctx, p, err)
	}
	return err
}

// WrapWithMiddleware wraps a Client with middleware and returns a new Client.
// Embedding calls pass straight through.
func WrapWithMiddleware(client Client, middleware ...Middleware) Client {
	if len(middleware) == 0 {
		return client
	}
	return &clientWithMiddleware{
		Client:     client,
		middleware: middleware,
	}
}

// clientWithMiddleware wraps a Client with middleware.
type clientWithMiddleware struct {
	Client
	middleware []Middleware
}

// Generate implements Client.Generate with middleware support.
func (c *clientWithMiddleware) Generate(ctx context.Context, p *prompt.Prompt) (response.ChatResponse, error) {
	// Apply BeforeRequest middleware
	for _, mw := range c.middleware {
		var err error
		p, err = mw.BeforeRequest(ctx, p)
		if err != nil {
			return response.ChatResponse{}, err
		}
	}

	resp, err := c.Client.Generate(ctx, p)
	if err != nil {
		original := err
		for _, mw := range c.middleware {
			err = mw.OnError(ctx, p, err)
			if err == nil {
				break // Middleware handled the error
			}
		}
		if err == nil {
			err = original
		}
		return response.ChatResponse{}, err
	}

	// Apply AfterResponse middleware in reverse order
	for i := len(c.middleware) - 1; i >= 0; i-- {
		resp, err = c.middleware[i].AfterResponse(ctx, p, resp)
		if err != nil {
			return response.ChatResponse{}, err
		}
	}
	return resp, nil
}

// LoggingMiddleware logs each call at debug and failures at warn.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	logger = logger.With().Str("component", "provider").Logger()
	return MiddlewareFunc{
		BeforeRequestFunc: func(ctx context.Context, p *prompt.Prompt) (*prompt.Prompt, error) {
			logger.Debug().
				Str("model", p.ModelIdentifier()).
				Int("messages", len(p.Messages)).
				Bool("structured", p.HasStructuredOutput()).
				Msg("Sending prompt")
			return p, nil
		},
		AfterResponseFunc: func(ctx context.Context, p *prompt.Prompt, resp response.ChatResponse) (response.ChatResponse, error) {
			usage := resp.Usage()
			logger.Debug().
				Str("model", p.ModelIdentifier()).
				Str("response_id", resp.ID()).
				Int64("prompt_tokens", usage.PromptTokens).
				Int64("completion_tokens", usage.CompletionTokens).
				Msg("Received response")
			return resp, nil
		},
		OnErrorFunc: func(ctx context.Context, p *prompt.Prompt, err error) error {
			logger.Warn().Err(err).Str("model", p.ModelIdentifier()).Msg("Prompt failed")
			return err
		},
	}
}
