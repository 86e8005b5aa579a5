package anthropic

import (
	"encoding/json"
	"testing"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBind(t *testing.T) {
	msg := NewTextMessage(llm.RoleUser, "What is ${a} + ${b}?")
	assert.Equal(t, []string{"a", "b"}, msg.Variables())

	bound := msg.Bind("a", "1").Bind("b", "2")
	assert.Equal(t, "What is 1 + 2?", bound.Text())
	assert.Equal(t, "What is ${a} + ${b}?", msg.Text())
	assert.Equal(t, "user", bound.RoleName())
}

func TestSystemMessageBind(t *testing.T) {
	sys := NewSystemMessage("You speak ${lang}")
	assert.Equal(t, []string{"lang"}, sys.Variables())
	assert.Equal(t, "You speak French", sys.Bind("lang", "French").Text)
}

func TestMessageRequestBody(t *testing.T) {
	req := NewMessageRequest("claude-sonnet-4-5",
		[]Message{NewTextMessage(llm.RoleUser, "hi")},
		[]SystemMessage{NewSystemMessage("be brief")},
		Settings{},
		map[string]any{"type": "object"},
	)
	assert.True(t, req.StructuredOutput())

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "claude-sonnet-4-5", body["model"])
	assert.EqualValues(t, DefaultMaxTokens, body["max_tokens"])
	assert.Equal(t, "json_schema", body["output_format"].(map[string]any)["type"])

	system := body["system"].([]any)
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])

	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	first := messages[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
}

func TestMessageResponse(t *testing.T) {
	body := `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5",
		"content": [{"type": "text", "text": "hello"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 7, "output_tokens": 3}
	}`
	var resp MessageResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	assert.Equal(t, "msg_1", resp.ID)
	assert.False(t, resp.IsEmpty())
	assert.Equal(t, "hello", resp.Text())
	assert.Equal(t, llm.Usage{PromptTokens: 7, CompletionTokens: 3, TotalTokens: 10}, resp.TokenUsage())

	echo := resp.ToMessage()
	assert.Equal(t, "assistant", echo.RoleName())
	assert.Equal(t, "hello", echo.Text())
}
