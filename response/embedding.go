package response

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/gemini"
	"github.com/demml/potatohead-sub001/llm/openai"
)

// EmbeddingKind tags an EmbeddingResponse variant.
type EmbeddingKind string

const (
	EmbeddingOpenAI EmbeddingKind = "OpenAIEmbeddingV1"
	EmbeddingGemini EmbeddingKind = "GeminiEmbeddingV1"
	EmbeddingVertex EmbeddingKind = "VertexEmbeddingV1"
)

// EmbeddingResponse is a provider embedding response. Exactly one variant
// is set.
type EmbeddingResponse struct {
	openAI *openai.EmbeddingResponse
	gemini *gemini.EmbeddingResponse
	vertex *gemini.PredictResponse
}

// DecodeEmbedding parses body as the variant named by kind.
func DecodeEmbedding(kind EmbeddingKind, body []byte) (EmbeddingResponse, error) {
	var (
		out EmbeddingResponse
		err error
	)
	switch kind {
	case EmbeddingOpenAI:
		out.openAI = &openai.EmbeddingResponse{}
		err = json.Unmarshal(body, out.openAI)
	case EmbeddingGemini:
		out.gemini = &gemini.EmbeddingResponse{}
		err = json.Unmarshal(body, out.gemini)
	case EmbeddingVertex:
		out.vertex = &gemini.PredictResponse{}
		err = json.Unmarshal(body, out.vertex)
	default:
		return EmbeddingResponse{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return EmbeddingResponse{}, llm.NewSerializationError(fmt.Sprintf("failed to decode %s response", kind), err)
	}
	return out, nil
}

// Kind returns the variant tag.
func (r EmbeddingResponse) Kind() EmbeddingKind {
	switch {
	case r.openAI != nil:
		return EmbeddingOpenAI
	case r.gemini != nil:
		return EmbeddingGemini
	case r.vertex != nil:
		return EmbeddingVertex
	default:
		return ""
	}
}

// Values returns the embedding vector of the first input.
func (r EmbeddingResponse) Values() []float32 {
	switch {
	case r.openAI != nil:
		return r.openAI.Values()
	case r.gemini != nil:
		return r.gemini.Values()
	case r.vertex != nil:
		return r.vertex.Values()
	default:
		return nil
	}
}

// Usage returns token usage where the provider reports it.
func (r EmbeddingResponse) Usage() llm.Usage {
	switch {
	case r.openAI != nil:
		return r.openAI.TokenUsage()
	case r.vertex != nil:
		return r.vertex.TokenUsage()
	default:
		return llm.Usage{}
	}
}

// OpenAI returns the OpenAI variant.
func (r EmbeddingResponse) OpenAI() (*openai.EmbeddingResponse, bool) {
	return r.openAI, r.openAI != nil
}

// Similarity is the cosine similarity of the first vectors of r and other.
func (r EmbeddingResponse) Similarity(other EmbeddingResponse) float64 {
	return CosineSimilarity(r.Values(), other.Values())
}

// CosineSimilarity between two equal-length vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		fa, fb := float64(a[i]), float64(b[i])
		dot += fa * fb
		na += fa * fa
		nb += fb * fb
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
