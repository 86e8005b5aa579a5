package gemini

import (
	"encoding/json"
	"testing"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContentRoles(t *testing.T) {
	user := NewTextContent(llm.RoleUser, "hi")
	assert.Equal(t, "user", user.Role)

	model := NewTextContent(llm.RoleAssistant, "hello")
	assert.Equal(t, "model", model.Role)
}

func TestNewContentParts(t *testing.T) {
	c, err := NewContent(llm.RoleUser,
		llm.Text("look at ${thing}"),
		llm.Image("gs://bucket/cat.png", "image/png"),
		llm.Binary([]byte("abc"), "application/pdf"),
	)
	require.NoError(t, err)
	require.Len(t, c.Parts, 3)

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","parts":[
		{"text":"look at ${thing}"},
		{"fileData":{"mimeType":"image/png","fileUri":"gs://bucket/cat.png"}},
		{"inlineData":{"mimeType":"application/pdf","data":"YWJj"}}
	]}`, string(data))

	assert.Equal(t, []string{"thing"}, c.Variables())
	assert.Equal(t, "look at cats", c.Bind("thing", "cats").Text())
}

func TestGenerateContentRequestStructuredOutput(t *testing.T) {
	temp := float32(0.2)
	settings := Settings{GenerationConfig: &GenerationConfig{Temperature: &temp}}
	schema := map[string]any{"type": "object"}

	req, err := NewGenerateContentRequest(
		[]Content{NewTextContent(llm.RoleUser, "score this")},
		[]Content{NewTextContent(llm.RoleUser, "you are a judge")},
		settings, schema,
	)
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Contains(t, body, "systemInstruction")
	gen := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.Equal(t, schema, gen["responseJsonSchema"])
	assert.InDelta(t, 0.2, gen["temperature"], 1e-6)

	// caller settings are not mutated
	assert.Empty(t, settings.GenerationConfig.ResponseMimeType)
}

func TestGenerateContentRequestRejectsMultipleSystemInstructions(t *testing.T) {
	system := []Content{NewTextContent(llm.RoleUser, "a"), NewTextContent(llm.RoleUser, "b")}
	_, err := NewGenerateContentRequest(nil, system, Settings{}, nil)
	assert.ErrorIs(t, err, ErrMoreThanOneSystemInstruction)
}

func TestGenerateContentResponseAccessors(t *testing.T) {
	body := `{
		"candidates": [{
			"index": 0,
			"content": {"role": "model", "parts": [{"text": "{\"score\":4,\"explanation\":\"good\"}"}]},
			"logprobsResult": {"chosenCandidates": [{"token": "4", "tokenId": 12, "logProbability": -0.01}]},
			"finishReason": "STOP"
		}],
		"responseId": "resp-1",
		"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 5, "totalTokenCount": 15}
	}`
	var resp GenerateContentResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	assert.False(t, resp.IsEmpty())
	assert.Equal(t, `{"score":4,"explanation":"good"}`, resp.Content())
	assert.Equal(t, int64(15), resp.TokenUsage().TotalTokens)
	assert.Len(t, resp.LogProbRecords(), 1)
}

func TestEmbeddingConfigValidate(t *testing.T) {
	_, err := NewEmbeddingConfig("", nil, "")
	assert.ErrorIs(t, err, ErrEmbeddingConfig)

	cfg, err := NewEmbeddingConfig("", nil, TaskTypeRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, DefaultEmbeddingModel, cfg.ModelName())
}

func TestPredictRequestShape(t *testing.T) {
	dims := 256
	cfg := EmbeddingConfig{Model: "text-embedding-005", OutputDimensionality: &dims, TaskType: TaskTypeRetrievalDocument}
	data, err := json.Marshal(cfg.PredictRequest([]string{"a", "b"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"instances": [{"content":"a","task_type":"RETRIEVAL_DOCUMENT"},{"content":"b","task_type":"RETRIEVAL_DOCUMENT"}],
		"parameters": {"outputDimensionality": 256}
	}`, string(data))
}

func TestPredictResponse(t *testing.T) {
	var resp PredictResponse
	require.NoError(t, json.Unmarshal([]byte(`{
		"predictions": [{"embeddings": {"values": [0.1, 0.2], "statistics": {"token_count": 3, "truncated": false}}}],
		"deployedModelId": "dep-1"
	}`), &resp))
	assert.False(t, resp.IsEmpty())
	assert.Equal(t, []float32{0.1, 0.2}, resp.Values())
	assert.Equal(t, int64(3), resp.TokenUsage().PromptTokens)

	var empty PredictResponse
	require.NoError(t, json.Unmarshal([]byte(`{"predictions": [], "deployedModelId": ""}`), &empty))
	assert.True(t, empty.IsEmpty())
}
