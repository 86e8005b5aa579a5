package provider

import (
	"context"
	"fmt"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/gemini"
	"github.com/demml/potatohead-sub001/llm/openai"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
)

// EmbeddingConfig selects the embedding request shape. Exactly one variant
// is set.
type EmbeddingConfig struct {
	OpenAI *openai.EmbeddingConfig `json:"openai,omitempty" yaml:"openai,omitempty"`
	Gemini *gemini.EmbeddingConfig `json:"gemini,omitempty" yaml:"gemini,omitempty"`
}

// OpenAIEmbedding wraps an OpenAI embedding config.
func OpenAIEmbedding(c openai.EmbeddingConfig) EmbeddingConfig {
	return EmbeddingConfig{OpenAI: &c}
}

// GeminiEmbedding wraps a Gemini or Vertex embedding config.
func GeminiEmbedding(c gemini.EmbeddingConfig) EmbeddingConfig {
	return EmbeddingConfig{Gemini: &c}
}

// Provider returns the family the config targets.
func (c EmbeddingConfig) Provider() llm.Provider {
	switch {
	case c.OpenAI != nil:
		return llm.ProviderOpenAI
	case c.Gemini != nil:
		return llm.ProviderGemini
	default:
		return llm.ProviderUndefined
	}
}

// Validate checks that exactly one usable variant is set.
func (c EmbeddingConfig) Validate() error {
	switch {
	case c.OpenAI != nil && c.Gemini != nil:
		return llm.NewConstructionError("embedding config sets more than one provider", nil)
	case c.OpenAI != nil:
		if c.OpenAI.Model == "" {
			return llm.NewConstructionError("openai embedding config requires a model", nil)
		}
		return nil
	case c.Gemini != nil:
		if err := c.Gemini.Validate(); err != nil {
			return llm.NewConstructionError("invalid gemini embedding config", err)
		}
		return nil
	default:
		return llm.NewConstructionError("embedding config sets no provider", nil)
	}
}

// Embedder submits embedding requests with a fixed config.
type Embedder struct {
	client Client
	config EmbeddingConfig
}

// NewEmbedder builds a client for provider and pairs it with config.
func NewEmbedder(ctx context.Context, provider llm.Provider, config EmbeddingConfig, opts ...Option) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Provider().Family() != provider.Family() {
		return nil, fmt.Errorf("%w: embedding config is for %s, provider is %s",
			prompt.ErrProviderMismatch, config.Provider(), provider)
	}
	client, err := New(ctx, provider, opts...)
	if err != nil {
		return nil, err
	}
	return &Embedder{client: client, config: config}, nil
}

// NewEmbedderWithClient pairs an existing client with config.
func NewEmbedderWithClient(client Client, config EmbeddingConfig) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Embedder{client: client, config: config}, nil
}

// Provider returns the client's effective provider.
func (e *Embedder) Provider() llm.Provider {
	return e.client.Provider()
}

// Embed submits one request for inputs.
func (e *Embedder) Embed(ctx context.Context, inputs []string) (response.EmbeddingResponse, error) {
	return e.client.Embed(ctx, inputs, e.config)
}
