package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/demml/potatohead-sub001/auth"
	"github.com/demml/potatohead-sub001/config"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/openai"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/demml/potatohead-sub001/response"
	"github.com/demml/potatohead-sub001/transport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captured struct {
	path    string
	headers http.Header
	body    string
}

func fakeServer(t *testing.T, status int, reply string) (*httptest.Server, *captured, *int32) {
	t.Helper()
	var (
		got   captured
		calls int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		body, _ := io.ReadAll(r.Body)
		got = captured{path: r.URL.Path, headers: r.Header.Clone(), body: string(body)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(srv.Close)
	return srv, &got, &calls
}

func newTestClient(t *testing.T, provider llm.Provider, env map[string]string) Client {
	t.Helper()
	client, err := New(context.Background(), provider,
		WithEnv(config.NewEnv(env)),
		WithTransport(transport.New(transport.Config{MaxAttempts: 3}, zerolog.Nop())),
	)
	require.NoError(t, err)
	return client
}

func TestOpenAIGenerateBindsVariables(t *testing.T) {
	srv, got, _ := fakeServer(t, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "5"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6}
	}`)
	client := newTestClient(t, llm.ProviderOpenAI, map[string]string{
		config.OpenAIAPIKey: "sk-test",
		config.OpenAIAPIURL: srv.URL,
	})

	msg, err := prompt.UserMessage(llm.ProviderOpenAI, "2 + ${x}")
	require.NoError(t, err)
	p, err := prompt.New([]prompt.Message{msg}, prompt.WithModel("gpt-4o"))
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), p.Bind("x", "3"))
	require.NoError(t, err)

	assert.Equal(t, "5", resp.Content())
	assert.Equal(t, "/chat/completions", got.path)
	assert.Equal(t, "Bearer sk-test", got.headers.Get("Authorization"))
	assert.Contains(t, got.body, "2 + 3")
	assert.NotContains(t, got.body, "${x}")
	assert.Equal(t, []string{"x"}, p.ExtractVariables(), "binding returns a copy")
}

func TestGeminiGenerateScore(t *testing.T) {
	srv, got, _ := fakeServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "{\"score\":4,\"explanation\":\"clear\"}"}]},
			"finishReason": "STOP"
		}],
		"usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 9, "totalTokenCount": 16}
	}`)
	client := newTestClient(t, llm.ProviderGemini, map[string]string{
		config.GeminiAPIKey: "g-key",
		config.GeminiAPIURL: srv.URL,
	})
	assert.Equal(t, llm.ProviderGemini, client.Provider())

	msg, err := prompt.UserMessage(llm.ProviderGemini, "Rate this answer")
	require.NoError(t, err)
	p, err := prompt.New([]prompt.Message{msg},
		prompt.WithModel("gemini-2.5-flash"),
		prompt.WithResponseType(prompt.ResponseTypeScore),
	)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), p)
	require.NoError(t, err)

	score, err := resp.Score()
	require.NoError(t, err)
	assert.Equal(t, 4, score.Score)
	assert.Equal(t, "clear", score.Explanation)
	assert.Equal(t, "/gemini-2.5-flash:generateContent", got.path)
	assert.Equal(t, "g-key", got.headers.Get(auth.HeaderGoogleAPIKey))
	assert.Contains(t, got.body, "responseJsonSchema")
}

func TestAnthropicStructuredOutputSendsBetaHeader(t *testing.T) {
	srv, got, _ := fakeServer(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [{"type": "text", "text": "{\"score\":5,\"explanation\":\"ok\"}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 3, "output_tokens": 4}
	}`)
	client := newTestClient(t, llm.ProviderAnthropic, map[string]string{
		config.AnthropicAPIKey: "sk-ant",
		config.AnthropicAPIURL: srv.URL,
	})

	msg, err := prompt.UserMessage(llm.ProviderAnthropic, "Rate it")
	require.NoError(t, err)
	p, err := prompt.New([]prompt.Message{msg},
		prompt.WithModel("claude-sonnet-4-5"),
		prompt.WithResponseType(prompt.ResponseTypeScore),
	)
	require.NoError(t, err)

	resp, err := client.Generate(context.Background(), p)
	require.NoError(t, err)
	score, err := resp.Score()
	require.NoError(t, err)
	assert.Equal(t, 5, score.Score)

	assert.Equal(t, "/messages", got.path)
	assert.Equal(t, "sk-ant", got.headers.Get(auth.HeaderAPIKey))
	assert.NotEmpty(t, got.headers.Get(auth.HeaderAnthropicVersion))
	assert.Equal(t, "structured-outputs-2025-11-13", got.headers.Get(HeaderAnthropicBeta))
}

func TestOpenAIEmbedding(t *testing.T) {
	values := make([]float32, 1536)
	for i := range values {
		values[i] = float32(i%7) / 10
	}
	raw, err := json.Marshal(values)
	require.NoError(t, err)
	srv, got, _ := fakeServer(t, http.StatusOK, fmt.Sprintf(`{
		"object": "list",
		"data": [{"object": "embedding", "index": 0, "embedding": %s}],
		"model": "text-embedding-3-small",
		"usage": {"prompt_tokens": 8, "total_tokens": 8}
	}`, raw))

	embedder, err := NewEmbedder(context.Background(), llm.ProviderOpenAI,
		OpenAIEmbedding(openai.DefaultEmbeddingConfig()),
		WithEnv(config.NewEnv(map[string]string{
			config.OpenAIAPIKey: "sk-test",
			config.OpenAIAPIURL: srv.URL,
		})),
	)
	require.NoError(t, err)

	resp, err := embedder.Embed(context.Background(), []string{"Test input"})
	require.NoError(t, err)

	assert.Len(t, resp.Values(), 1536)
	assert.EqualValues(t, 8, resp.Usage().PromptTokens)
	assert.Equal(t, response.EmbeddingOpenAI, resp.Kind())
	assert.Equal(t, "/embeddings", got.path)
	assert.Contains(t, got.body, "text-embedding-3-small")
}

func TestEmbeddingRejections(t *testing.T) {
	t.Run("mismatched config", func(t *testing.T) {
		_, err := NewEmbedder(context.Background(), llm.ProviderGemini,
			OpenAIEmbedding(openai.DefaultEmbeddingConfig()),
			WithEnv(config.NewEnv(map[string]string{config.GeminiAPIKey: "g"})),
		)
		assert.ErrorIs(t, err, prompt.ErrProviderMismatch)
	})

	t.Run("anthropic", func(t *testing.T) {
		client := newTestClient(t, llm.ProviderAnthropic, map[string]string{config.AnthropicAPIKey: "k"})
		_, err := client.Embed(context.Background(), []string{"x"}, OpenAIEmbedding(openai.DefaultEmbeddingConfig()))
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})

	t.Run("empty config", func(t *testing.T) {
		assert.Error(t, EmbeddingConfig{}.Validate())
	})
}

func TestGenerateErrors(t *testing.T) {
	msg, err := prompt.UserMessage(llm.ProviderOpenAI, "hi")
	require.NoError(t, err)
	p, err := prompt.New([]prompt.Message{msg}, prompt.WithModel("gpt-4o"))
	require.NoError(t, err)

	t.Run("missing credentials", func(t *testing.T) {
		srv, _, calls := fakeServer(t, http.StatusOK, `{}`)
		client := newTestClient(t, llm.ProviderOpenAI, map[string]string{config.OpenAIAPIURL: srv.URL})

		_, err := client.Generate(context.Background(), p)
		require.Error(t, err)
		assert.True(t, llm.IsAuthError(err))
		assert.ErrorIs(t, err, auth.ErrMissingAuthentication)
		assert.Zero(t, atomic.LoadInt32(calls))
	})

	t.Run("server error is not retried", func(t *testing.T) {
		srv, _, calls := fakeServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
		client := newTestClient(t, llm.ProviderOpenAI, map[string]string{
			config.OpenAIAPIKey: "sk",
			config.OpenAIAPIURL: srv.URL,
		})

		_, err := client.Generate(context.Background(), p)
		require.Error(t, err)
		assert.True(t, llm.IsCompletionError(err))
		assert.Equal(t, http.StatusInternalServerError, llm.StatusCode(err))
		assert.Contains(t, err.Error(), "boom")
		assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	})

	t.Run("provider mismatch", func(t *testing.T) {
		client := newTestClient(t, llm.ProviderAnthropic, map[string]string{config.AnthropicAPIKey: "k"})
		_, err := client.Generate(context.Background(), p)
		assert.ErrorIs(t, err, prompt.ErrProviderMismatch)
	})
}

func TestMiddlewareOrder(t *testing.T) {
	srv, _, _ := fakeServer(t, http.StatusOK, `{
		"id": "c", "object": "chat.completion", "model": "gpt-4o",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "hi"}, "finish_reason": "stop"}]
	}`)
	var order []string
	record := func(name string) Middleware {
		return MiddlewareFunc{
			BeforeRequestFunc: func(ctx context.Context, p *prompt.Prompt) (*prompt.Prompt, error) {
				order = append(order, "before "+name)
				return p, nil
			},
			AfterResponseFunc: func(ctx context.Context, p *prompt.Prompt, resp response.ChatResponse) (response.ChatResponse, error) {
				order = append(order, "after "+name)
				return resp, nil
			},
		}
	}
	client, err := New(context.Background(), llm.ProviderOpenAI,
		WithEnv(config.NewEnv(map[string]string{config.OpenAIAPIKey: "sk", config.OpenAIAPIURL: srv.URL})),
		WithMiddleware(record("a"), record("b")),
		WithoutInstrumentation(),
	)
	require.NoError(t, err)

	msg, err := prompt.UserMessage(llm.ProviderOpenAI, "hi")
	require.NoError(t, err)
	p, err := prompt.New([]prompt.Message{msg}, prompt.WithModel("gpt-4o"))
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"before a", "before b", "after b", "after a"}, order)
}

func TestEndpointURLs(t *testing.T) {
	tests := []struct {
		name    string
		ep      endpoint
		service llm.ServiceType
		model   string
		want    string
	}{
		{"openai chat", endpoint{llm.ProviderOpenAI, OpenAIBaseURL}, llm.ServiceGenerate, "gpt-4o", OpenAIBaseURL + "/chat/completions"},
		{"openai embed", endpoint{llm.ProviderOpenAI, OpenAIBaseURL}, llm.ServiceEmbed, "", OpenAIBaseURL + "/embeddings"},
		{"anthropic", endpoint{llm.ProviderAnthropic, AnthropicBaseURL}, llm.ServiceGenerate, "claude", AnthropicBaseURL + "/messages"},
		{"gemini generate", endpoint{llm.ProviderGemini, "https://g/v1beta/models"}, llm.ServiceGenerate, "gemini-2.5-flash", "https://g/v1beta/models/gemini-2.5-flash:generateContent"},
		{"gemini embed", endpoint{llm.ProviderGemini, "https://g/v1beta/models"}, llm.ServiceEmbed, "gemini-embedding-001", "https://g/v1beta/models/gemini-embedding-001:embedContent"},
		{"vertex embed", endpoint{llm.ProviderVertex, "https://v/models"}, llm.ServiceEmbed, "text-embedding-005", "https://v/models/text-embedding-005:predict"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ep.url(tt.service, tt.model))
		})
	}
}

func TestVertexEndpoint(t *testing.T) {
	creds := auth.OAuth(auth.TokenFunc(func(context.Context) (string, error) { return "Bearer t", nil }), "proj", "us-central1")

	ep, err := newEndpoint(llm.ProviderGemini, creds, config.NewEnv(nil))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderVertex, ep.provider)
	assert.True(t, strings.HasPrefix(ep.base, "https://us-central1-aiplatform.googleapis.com/v1beta1/projects/proj/locations/us-central1"))

	_, err = newEndpoint(llm.ProviderGemini, creds, config.NewEnv(map[string]string{config.GoogleAPIVersion: "v9"}))
	assert.Error(t, err)
}
