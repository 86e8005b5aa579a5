package provider

import (
	"context"
	"fmt"

	"github.com/demml/potatohead-sub001/auth"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/anthropic"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/demml/potatohead-sub001/transport"
	"github.com/rs/zerolog"
)

// HeaderAnthropicBeta enables beta features on Anthropic requests.
const HeaderAnthropicBeta = "anthropic-beta"

// httpClient implements Client for every provider family over the shared
// transport.
type httpClient struct {
	provider llm.Provider
	creds    *auth.Credentials
	endpoint endpoint
	http     *transport.Client
	logger   zerolog.Logger
}

func (c *httpClient) Provider() llm.Provider {
	return c.provider
}

func (c *httpClient) Generate(ctx context.Context, p *prompt.Prompt) (response.ChatResponse, error) {
	if p.Provider.Family() != c.provider.Family() {
		return response.ChatResponse{}, fmt.Errorf("%w: prompt is for %s, client is %s",
			prompt.ErrProviderMismatch, p.Provider, c.provider)
	}

	req, err := p.ToRequest()
	if err != nil {
		return response.ChatResponse{}, err
	}
	body, err := req.Body()
	if err != nil {
		return response.ChatResponse{}, err
	}

	headers, err := c.creds.Headers(ctx)
	if err != nil {
		return response.ChatResponse{}, err
	}
	if req.Anthropic != nil && req.StructuredOutput() {
		headers[HeaderAnthropicBeta] = anthropic.StructuredOutputBeta
	}

	url := c.endpoint.url(llm.ServiceGenerate, p.Model)
	c.logger.Debug().Str("url", url).Str("model", p.Model).Msg("Posting generate request")

	resp, err := c.http.PostJSON(ctx, url, body, headers)
	if err != nil {
		return response.ChatResponse{}, fmt.Errorf("%s generate: %w", c.provider, err)
	}
	c.logger.Debug().Int("status", resp.StatusCode).Int("attempts", resp.Attempts).Msg("Generate request finished")

	return response.Decode(c.responseKind(), resp.Body)
}

func (c *httpClient) responseKind() response.Kind {
	switch c.provider {
	case llm.ProviderOpenAI:
		return response.KindOpenAI
	case llm.ProviderAnthropic:
		return response.KindAnthropic
	case llm.ProviderVertex:
		return response.KindVertexGenerate
	default:
		return response.KindGemini
	}
}

func (c *httpClient) Embed(ctx context.Context, inputs []string, cfg EmbeddingConfig) (response.EmbeddingResponse, error) {
	if len(inputs) == 0 {
		return response.EmbeddingResponse{}, llm.NewConstructionError("no embedding inputs", nil)
	}
	if c.provider == llm.ProviderAnthropic {
		return response.EmbeddingResponse{}, llm.NewConstructionError("anthropic does not serve embeddings", ErrUnsupportedProvider)
	}
	if err := cfg.Validate(); err != nil {
		return response.EmbeddingResponse{}, err
	}
	if cfg.Provider().Family() != c.provider.Family() {
		return response.EmbeddingResponse{}, fmt.Errorf("%w: embedding config is for %s, client is %s",
			prompt.ErrProviderMismatch, cfg.Provider(), c.provider)
	}

	var (
		body  any
		model string
		kind  response.EmbeddingKind
	)
	switch {
	case cfg.OpenAI != nil:
		body, kind = cfg.OpenAI.Request(inputs), response.EmbeddingOpenAI
	case cfg.Gemini != nil && c.provider == llm.ProviderVertex:
		body, model, kind = cfg.Gemini.PredictRequest(inputs), cfg.Gemini.ModelName(), response.EmbeddingVertex
	case cfg.Gemini != nil:
		body, model, kind = cfg.Gemini.Request(inputs), cfg.Gemini.ModelName(), response.EmbeddingGemini
	}

	headers, err := c.creds.Headers(ctx)
	if err != nil {
		return response.EmbeddingResponse{}, err
	}

	url := c.endpoint.url(llm.ServiceEmbed, model)
	c.logger.Debug().Str("url", url).Int("inputs", len(inputs)).Msg("Posting embed request")

	resp, err := c.http.PostJSON(ctx, url, body, headers)
	if err != nil {
		return response.EmbeddingResponse{}, fmt.Errorf("%s embed: %w", c.provider, err)
	}
	return response.DecodeEmbedding(kind, resp.Body)
}
