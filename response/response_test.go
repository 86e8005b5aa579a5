package response

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAIBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "model": "gpt-4o",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "5"},
    "finish_reason": "stop",
    "logprobs": {"content": [
      {"token": "5", "logprob": -0.1},
      {"token": "ok", "logprob": -0.5},
      {"token": "4", "logprob": -2.5}
    ]}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 1, "total_tokens": 11},
  "some_future_field": true
}`

const geminiScoreBody = `{
  "candidates": [{
    "content": {"role": "model", "parts": [{"text": "{\"score\":4,\"explanation\":\"good\"}"}]},
    "finishReason": "STOP"
  }],
  "usageMetadata": {"promptTokenCount": 7, "candidatesTokenCount": 9, "totalTokenCount": 16},
  "responseId": "resp-1"
}`

const anthropicBody = `{
  "id": "msg_1",
  "type": "message",
  "role": "assistant",
  "model": "claude-sonnet-4-5",
  "content": [
    {"type": "text", "text": "hello"},
    {"type": "tool_use", "id": "tu_1", "name": "lookup", "input": {"q": "x"}}
  ],
  "stop_reason": "tool_use",
  "usage": {"input_tokens": 3, "output_tokens": 4}
}`

func TestDecodeOpenAI(t *testing.T) {
	r, err := Decode(KindOpenAI, []byte(openAIBody))
	require.NoError(t, err)

	assert.Equal(t, KindOpenAI, r.Kind())
	assert.Equal(t, llm.ProviderOpenAI, r.Provider())
	assert.Equal(t, "chatcmpl-1", r.ID())
	assert.False(t, r.IsEmpty())
	assert.Equal(t, "5", r.Content())
	assert.Equal(t, llm.Usage{PromptTokens: 10, CompletionTokens: 1, TotalTokens: 11}, r.Usage())

	digits := r.LogProbs()
	require.Len(t, digits, 2)
	assert.Equal(t, "5", digits[0].Token)
	assert.Equal(t, "4", digits[1].Token)

	score, ok := r.WeightedScore()
	require.True(t, ok)
	p5, p4 := math.Exp(-0.1), math.Exp(-2.5)
	assert.InDelta(t, (5*p5+4*p4)/(p5+p4), score, 1e-9)

	msg, err := r.ToMessage()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderOpenAI, msg.Provider())
	assert.Equal(t, "assistant", msg.Role())
	assert.Equal(t, "5", msg.Text())
}

func TestDecodeGeminiStructuredOutput(t *testing.T) {
	r, err := Decode(KindGemini, []byte(geminiScoreBody))
	require.NoError(t, err)
	assert.Equal(t, "resp-1", r.ID())
	assert.EqualValues(t, 16, r.Usage().TotalTokens)

	value, err := r.StructuredOutput(prompt.ScoreSchema())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"score": float64(4), "explanation": "good"}, value)

	score, err := r.Score()
	require.NoError(t, err)
	assert.Equal(t, prompt.Score{Score: 4, Explanation: "good"}, score)

	msg, err := r.ToMessage()
	require.NoError(t, err)
	assert.Equal(t, "model", msg.Role())
}

func TestStructuredOutputSchemaMismatch(t *testing.T) {
	body := `{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"score\":\"high\"}"}]}}]}`
	r, err := Decode(KindVertexGenerate, []byte(body))
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderVertex, r.Provider())

	_, err = r.StructuredOutput(prompt.ScoreSchema())
	require.Error(t, err)
	assert.True(t, llm.IsValidationError(err))
}

func TestStructuredOutputNotJSON(t *testing.T) {
	r, err := Decode(KindOpenAI, []byte(`{"choices":[{"message":{"role":"assistant","content":"plain"}}]}`))
	require.NoError(t, err)
	_, err = r.StructuredOutput(nil)
	assert.True(t, llm.IsValidationError(err))
	assert.Equal(t, "plain", r.StructuredValue())
}

func TestEmptyResponses(t *testing.T) {
	tests := []struct {
		kind Kind
		body string
	}{
		{KindOpenAI, `{"id":"x","choices":[]}`},
		{KindGemini, `{"candidates":[]}`},
		{KindAnthropic, `{"id":"msg","type":"message","role":"assistant","content":[]}`},
		{KindVertexPredict, `{"predictions":[]}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			r, err := Decode(tt.kind, []byte(tt.body))
			require.NoError(t, err)
			assert.True(t, r.IsEmpty())
			_, err = r.StructuredOutput(nil)
			assert.ErrorIs(t, err, ErrEmptyResponse)
			assert.Nil(t, r.StructuredValue())
		})
	}
}

func TestDecodeAnthropic(t *testing.T) {
	r, err := Decode(KindAnthropic, []byte(anthropicBody))
	require.NoError(t, err)
	assert.Equal(t, "msg_1", r.ID())
	assert.Equal(t, "hello", r.Content())
	assert.Equal(t, llm.Usage{PromptTokens: 3, CompletionTokens: 4, TotalTokens: 7}, r.Usage())
	assert.Empty(t, r.LogProbs())

	calls := r.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "lookup", calls[0].Name)
	assert.JSONEq(t, `{"q":"x"}`, string(calls[0].Arguments))

	msg, err := r.ToMessage()
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAnthropic, msg.Provider())
	assert.Equal(t, "hello", msg.Text())
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode(KindOpenAI, []byte(`{"choices": "nope"`))
	assert.True(t, llm.IsSerializationError(err))

	_, err = Decode(Kind("Other"), []byte(`{}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestChatResponseJSONRoundTrip(t *testing.T) {
	r, err := Decode(KindGemini, []byte(geminiScoreBody))
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded ChatResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.Kind(), decoded.Kind())
	assert.Equal(t, r.Content(), decoded.Content())
}

func TestEmbeddingResponses(t *testing.T) {
	openAI, err := DecodeEmbedding(EmbeddingOpenAI, []byte(`{
		"object": "list",
		"data": [{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}],
		"model": "text-embedding-3-small",
		"usage": {"prompt_tokens": 8, "total_tokens": 8}
	}`))
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, openAI.Values())
	assert.EqualValues(t, 8, openAI.Usage().PromptTokens)

	gem, err := DecodeEmbedding(EmbeddingGemini, []byte(`{"embedding":{"values":[0.1,0.2,0.3]}}`))
	require.NoError(t, err)
	assert.Len(t, gem.Values(), 3)
	assert.InDelta(t, 1.0, openAI.Similarity(gem), 1e-6)

	vertex, err := DecodeEmbedding(EmbeddingVertex, []byte(`{
		"predictions": [{"embeddings": {"values": [1, 0], "statistics": {"token_count": 4, "truncated": false}}}]
	}`))
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vertex.Values())
	assert.EqualValues(t, 4, vertex.Usage().PromptTokens)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}))
}

func TestVertexPredictView(t *testing.T) {
	r, err := Decode(KindVertexPredict, []byte(`{"predictions":[{"embeddings":{"values":[0.1]}}],"deployedModelId":"dm-1"}`))
	require.NoError(t, err)

	assert.Equal(t, KindVertexPredict, r.Kind())
	assert.Equal(t, llm.ProviderVertex, r.Provider())
	assert.Equal(t, "dm-1", r.ID())
	assert.False(t, r.IsEmpty())
	assert.Empty(t, r.Content())

	data, err := json.Marshal(r)
	require.NoError(t, err)
	var decoded ChatResponse
	require.NoError(t, json.Unmarshal(data, &decoded))
	pred, ok := decoded.VertexPredict()
	require.True(t, ok)
	assert.Equal(t, "dm-1", pred.DeployedModelID)
}
