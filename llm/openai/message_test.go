package openai

import (
	"encoding/json"
	"testing"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatMessageUnmarshalStringContent(t *testing.T) {
	var msg ChatMessage
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user","content":"hello ${name}"}`), &msg))

	assert.Equal(t, "user", msg.Role)
	require.Len(t, msg.Content, 1)
	assert.Equal(t, PartText, msg.Content[0].Type)
	assert.Equal(t, []string{"name"}, msg.Variables())
}

func TestChatMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage(llm.RoleUser,
		llm.Text("describe"),
		llm.Image("https://example.com/cat.png", "image/png"),
	)
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":[{"type":"text","text":"describe"},{"type":"image_url","image_url":{"url":"https://example.com/cat.png"}}]}`, string(data))

	var decoded ChatMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, msg, decoded)
}

func TestChatMessageBindSkipsNonText(t *testing.T) {
	msg, err := NewMessage(llm.RoleUser,
		llm.Text("2 + ${x}"),
		llm.Binary([]byte("abc"), "image/png"),
	)
	require.NoError(t, err)

	bound := msg.Bind("x", "3")
	assert.Equal(t, "2 + 3", bound.Text())
	assert.Equal(t, PartImageURL, bound.Content[1].Type)
	assert.Equal(t, "data:image/png;base64,YWJj", bound.Content[1].ImageURL.URL)
	// original untouched
	assert.Equal(t, "2 + ${x}", msg.Text())
}

func TestNewChatRequestStructuredOutput(t *testing.T) {
	schema := map[string]any{"type": "object", "title": "Score"}
	req := NewChatRequest("gpt-4o",
		[]ChatMessage{NewTextMessage(llm.RoleDeveloper, "be terse")},
		[]ChatMessage{NewTextMessage(llm.RoleUser, "hi")},
		ChatSettings{Temperature: ptr(float32(0.5))},
		schema,
	)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "gpt-4o", body["model"])
	assert.InDelta(t, 0.5, body["temperature"], 1e-6)

	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "developer", messages[0].(map[string]any)["role"])

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	js := format["json_schema"].(map[string]any)
	assert.Equal(t, "Score", js["name"])
	assert.Equal(t, true, js["strict"])
}

func TestNewResponseFormatDefaultName(t *testing.T) {
	rf := NewResponseFormat(map[string]any{"type": "object"})
	assert.Equal(t, DefaultSchemaName, rf.JSONSchema.Name)
}

func TestChatResponseAccessors(t *testing.T) {
	body := `{
		"id": "chatcmpl-1",
		"choices": [{
			"index": 0,
			"message": {"role": "assistant", "content": "5"},
			"finish_reason": "stop",
			"logprobs": {"content": [
				{"token": "5", "logprob": -0.1, "bytes": [53]},
				{"token": "five", "logprob": -2.3}
			]}
		}],
		"usage": {"prompt_tokens": 3, "completion_tokens": 1, "total_tokens": 4}
	}`
	var resp ChatResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	assert.False(t, resp.IsEmpty())
	assert.Equal(t, "5", resp.Content())
	assert.Equal(t, llm.Usage{PromptTokens: 3, CompletionTokens: 1, TotalTokens: 4}, resp.TokenUsage())
	assert.Len(t, llm.SingleDigitLogProbs(resp.LogProbRecords()), 1)
}

func TestEmbeddingConfigRequest(t *testing.T) {
	dims := 512
	cfg := EmbeddingConfig{Model: "text-embedding-3-small", Dimensions: &dims}
	data, err := json.Marshal(cfg.Request([]string{"a", "b"}))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "text-embedding-3-small", body["model"])
	assert.EqualValues(t, 512, body["dimensions"])
	assert.Len(t, body["input"], 2)
}

func ptr[T any](v T) *T { return &v }
