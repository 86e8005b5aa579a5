package openai

import (
	"github.com/demml/potatohead-sub001/llm"
	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingConfig configures POST /embeddings.
type EmbeddingConfig struct {
	Model          string `json:"model" yaml:"model"`
	Dimensions     *int   `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
	EncodingFormat string `json:"encoding_format,omitempty" yaml:"encoding_format,omitempty"`
	User           string `json:"user,omitempty" yaml:"user,omitempty"`
}

// DefaultEmbeddingConfig uses text-embedding-3-small.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{Model: string(openai.SmallEmbedding3)}
}

// Request builds the embedding request body for inputs.
func (c EmbeddingConfig) Request(inputs []string) openai.EmbeddingRequest {
	req := openai.EmbeddingRequest{
		Input:          inputs,
		Model:          openai.EmbeddingModel(c.Model),
		User:           c.User,
		EncodingFormat: openai.EmbeddingEncodingFormat(c.EncodingFormat),
	}
	if c.Dimensions != nil {
		req.Dimensions = *c.Dimensions
	}
	return req
}

// EmbeddingResponse wraps the SDK response with accessors.
type EmbeddingResponse struct {
	openai.EmbeddingResponse
}

// Values returns the vector of the first input.
func (r *EmbeddingResponse) Values() []float32 {
	if len(r.Data) == 0 {
		return nil
	}
	return r.Data[0].Embedding
}

// TokenUsage projects the usage block. Embeddings have no completion tokens.
func (r *EmbeddingResponse) TokenUsage() llm.Usage {
	return llm.Usage{
		PromptTokens: int64(r.Usage.PromptTokens),
		TotalTokens:  int64(r.Usage.TotalTokens),
	}
}
