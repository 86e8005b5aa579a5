package gemini

import (
	"encoding/json"
	"errors"

	"github.com/demml/potatohead-sub001/llm"
)

// DefaultEmbeddingModel is used when the config names no model.
const DefaultEmbeddingModel = "embedding-001"

// Embedding task types.
const (
	TaskTypeUnspecified        = "TASK_TYPE_UNSPECIFIED"
	TaskTypeRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskTypeRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskTypeSemanticSimilarity = "SEMANTIC_SIMILARITY"
	TaskTypeClassification     = "CLASSIFICATION"
	TaskTypeClustering         = "CLUSTERING"
	TaskTypeQuestionAnswering  = "QUESTION_ANSWERING"
	TaskTypeFactVerification   = "FACT_VERIFICATION"
	TaskTypeCodeRetrievalQuery = "CODE_RETRIEVAL_QUERY"
)

// ErrEmbeddingConfig is returned when neither model nor task type is set.
var ErrEmbeddingConfig = errors.New("gemini embedding config requires a model or a task type")

// EmbeddingConfig configures :embedContent and Vertex :predict calls.
type EmbeddingConfig struct {
	Model                string `json:"model,omitempty" yaml:"model,omitempty"`
	OutputDimensionality *int   `json:"output_dimensionality,omitempty" yaml:"output_dimensionality,omitempty"`
	TaskType             string `json:"task_type,omitempty" yaml:"task_type,omitempty"`
}

// NewEmbeddingConfig validates and returns a config.
func NewEmbeddingConfig(model string, outputDimensionality *int, taskType string) (EmbeddingConfig, error) {
	cfg := EmbeddingConfig{Model: model, OutputDimensionality: outputDimensionality, TaskType: taskType}
	return cfg, cfg.Validate()
}

// Validate checks that at least one of model or task type is set.
func (c EmbeddingConfig) Validate() error {
	if c.Model == "" && c.TaskType == "" {
		return ErrEmbeddingConfig
	}
	return nil
}

// ModelName returns the configured model or DefaultEmbeddingModel.
func (c EmbeddingConfig) ModelName() string {
	if c.Model == "" {
		return DefaultEmbeddingModel
	}
	return c.Model
}

// EmbedContentRequest is the body of a :embedContent call.
type EmbedContentRequest struct {
	Content              Content `json:"content"`
	OutputDimensionality *int    `json:"outputDimensionality,omitempty"`
	TaskType             string  `json:"taskType,omitempty"`
}

// Request builds an :embedContent body. Every input becomes a text part.
func (c EmbeddingConfig) Request(inputs []string) EmbedContentRequest {
	parts := make([]Part, 0, len(inputs))
	for _, in := range inputs {
		parts = append(parts, TextPart(in))
	}
	return EmbedContentRequest{
		Content:              Content{Role: "user", Parts: parts},
		OutputDimensionality: c.OutputDimensionality,
		TaskType:             c.TaskType,
	}
}

// ContentEmbedding is an embedding vector.
type ContentEmbedding struct {
	Values []float32 `json:"values"`
}

// EmbeddingResponse is the body returned by :embedContent.
type EmbeddingResponse struct {
	Embedding ContentEmbedding `json:"embedding"`
}

// Values returns the embedding vector.
func (r *EmbeddingResponse) Values() []float32 {
	return r.Embedding.Values
}

// PredictInstance is one Vertex embedding input.
type PredictInstance struct {
	Content  string `json:"content"`
	TaskType string `json:"task_type,omitempty"`
}

// PredictParameters are Vertex embedding parameters.
type PredictParameters struct {
	OutputDimensionality *int `json:"outputDimensionality,omitempty"`
}

// PredictRequest is the body of a Vertex :predict call.
type PredictRequest struct {
	Instances  []PredictInstance `json:"instances"`
	Parameters PredictParameters `json:"parameters"`
}

// PredictRequest builds a Vertex :predict body with one instance per input.
func (c EmbeddingConfig) PredictRequest(inputs []string) PredictRequest {
	instances := make([]PredictInstance, 0, len(inputs))
	for _, in := range inputs {
		instances = append(instances, PredictInstance{Content: in, TaskType: c.TaskType})
	}
	return PredictRequest{
		Instances:  instances,
		Parameters: PredictParameters{OutputDimensionality: c.OutputDimensionality},
	}
}

// PredictResponse is the body returned by Vertex :predict.
type PredictResponse struct {
	Predictions      json.RawMessage `json:"predictions"`
	Metadata         json.RawMessage `json:"metadata,omitempty"`
	DeployedModelID  string          `json:"deployedModelId"`
	Model            string          `json:"model,omitempty"`
	ModelVersionID   string          `json:"modelVersionId,omitempty"`
	ModelDisplayName string          `json:"modelDisplayName,omitempty"`
}

type predictionStatistics struct {
	TokenCount int64 `json:"token_count"`
	Truncated  bool  `json:"truncated"`
}

type embeddingPrediction struct {
	Embeddings struct {
		Values     []float32            `json:"values"`
		Statistics predictionStatistics `json:"statistics"`
	} `json:"embeddings"`
}

func (r *PredictResponse) embeddings() []embeddingPrediction {
	var preds []embeddingPrediction
	if err := json.Unmarshal(r.Predictions, &preds); err != nil {
		return nil
	}
	return preds
}

// IsEmpty reports whether predictions is an empty array.
func (r *PredictResponse) IsEmpty() bool {
	var preds []json.RawMessage
	if err := json.Unmarshal(r.Predictions, &preds); err != nil {
		return false
	}
	return len(preds) == 0
}

// Values returns the embedding of the first instance.
func (r *PredictResponse) Values() []float32 {
	preds := r.embeddings()
	if len(preds) == 0 {
		return nil
	}
	return preds[0].Embeddings.Values
}

// TokenUsage sums the token counts reported for each instance.
func (r *PredictResponse) TokenUsage() llm.Usage {
	var total int64
	for _, p := range r.embeddings() {
		total += p.Embeddings.Statistics.TokenCount
	}
	return llm.Usage{PromptTokens: total, TotalTokens: total}
}
