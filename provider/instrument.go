package provider

import (
	"context"
	"time"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/demml/potatohead-sub001/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// instrumentedClient records metrics and spans around every call.
type instrumentedClient struct {
	Client
}

// Instrument wraps client with prometheus metrics and tracing spans.
func Instrument(client Client) Client {
	return &instrumentedClient{Client: client}
}

func (c *instrumentedClient) Generate(ctx context.Context, p *prompt.Prompt) (response.ChatResponse, error) {
	provider := c.Provider().String()
	ctx, span := telemetry.Tracer().Start(ctx, "provider.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.model", p.Model),
		attribute.Bool("llm.structured_output", p.HasStructuredOutput()),
	)

	start := time.Now()
	resp, err := c.Client.Generate(ctx, p)
	telemetry.RecordProviderRequest(provider, llm.ServiceGenerate.String(), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}

	usage := resp.Usage()
	telemetry.RecordTokens(provider, usage.PromptTokens, usage.CompletionTokens)
	span.SetAttributes(
		attribute.String("llm.response_id", resp.ID()),
		attribute.Int64("llm.usage.total_tokens", usage.TotalTokens),
	)
	return resp, nil
}

func (c *instrumentedClient) Embed(ctx context.Context, inputs []string, cfg EmbeddingConfig) (response.EmbeddingResponse, error) {
	provider := c.Provider().String()
	ctx, span := telemetry.Tracer().Start(ctx, "provider.embed")
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.provider", provider),
		attribute.Int("llm.inputs", len(inputs)),
	)

	start := time.Now()
	resp, err := c.Client.Embed(ctx, inputs, cfg)
	telemetry.RecordProviderRequest(provider, llm.ServiceEmbed.String(), time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	telemetry.RecordTokens(provider, resp.Usage().PromptTokens, 0)
	return resp, nil
}
