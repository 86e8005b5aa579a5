// Package response decodes provider responses into a closed set of
// variants with a uniform view.
package response

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/anthropic"
	"github.com/demml/potatohead-sub001/llm/gemini"
	"github.com/demml/potatohead-sub001/llm/openai"
	"github.com/demml/potatohead-sub001/prompt"
)

// Kind tags a ChatResponse variant.
type Kind string

const (
	KindOpenAI         Kind = "OpenAIV1"
	KindGemini         Kind = "GeminiV1"
	KindVertexGenerate Kind = "VertexGenerateV1"
	KindVertexPredict  Kind = "VertexPredictV1" // decode-only, see FromVertexPredict
	KindAnthropic      Kind = "AnthropicMessageV1"
)

// ErrEmptyResponse is returned when a response carries no choices,
// candidates or content blocks.
var ErrEmptyResponse = errors.New("empty response")

// ErrUnknownKind is returned when decoding an unknown variant tag.
var ErrUnknownKind = errors.New("unknown response kind")

// ToolCall is a provider-neutral tool invocation.
type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ChatResponse is a provider response. Exactly one variant is set.
type ChatResponse struct {
	openAI         *openai.ChatResponse
	gemini         *gemini.GenerateContentResponse
	vertexGenerate *gemini.GenerateContentResponse
	vertexPredict  *gemini.PredictResponse
	anthropic      *anthropic.MessageResponse
}

// FromOpenAI wraps an OpenAI chat completion.
func FromOpenAI(r *openai.ChatResponse) ChatResponse { return ChatResponse{openAI: r} }

// FromGemini wraps a Gemini API generateContent response.
func FromGemini(r *gemini.GenerateContentResponse) ChatResponse { return ChatResponse{gemini: r} }

// FromVertexGenerate wraps a Vertex AI generateContent response.
func FromVertexGenerate(r *gemini.GenerateContentResponse) ChatResponse {
	return ChatResponse{vertexGenerate: r}
}

// FromVertexPredict wraps a Vertex AI predict response. Provider clients
// never produce this variant from Generate; it exists for predict bodies
// decoded by the caller, and its Content is always "".
func FromVertexPredict(r *gemini.PredictResponse) ChatResponse {
	return ChatResponse{vertexPredict: r}
}

// FromAnthropic wraps an Anthropic message.
func FromAnthropic(r *anthropic.MessageResponse) ChatResponse { return ChatResponse{anthropic: r} }

// Decode parses body as the variant named by kind. Unknown fields are
// ignored.
func Decode(kind Kind, body []byte) (ChatResponse, error) {
	var (
		out ChatResponse
		err error
	)
	switch kind {
	case KindOpenAI:
		out.openAI = &openai.ChatResponse{}
		err = json.Unmarshal(body, out.openAI)
	case KindGemini:
		out.gemini = &gemini.GenerateContentResponse{}
		err = json.Unmarshal(body, out.gemini)
	case KindVertexGenerate:
		out.vertexGenerate = &gemini.GenerateContentResponse{}
		err = json.Unmarshal(body, out.vertexGenerate)
	case KindVertexPredict:
		out.vertexPredict = &gemini.PredictResponse{}
		err = json.Unmarshal(body, out.vertexPredict)
	case KindAnthropic:
		out.anthropic = &anthropic.MessageResponse{}
		err = json.Unmarshal(body, out.anthropic)
	default:
		return ChatResponse{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return ChatResponse{}, llm.NewSerializationError(fmt.Sprintf("failed to decode %s response", kind), err)
	}
	return out, nil
}

// Kind returns the variant tag.
func (r ChatResponse) Kind() Kind {
	switch {
	case r.openAI != nil:
		return KindOpenAI
	case r.gemini != nil:
		return KindGemini
	case r.vertexGenerate != nil:
		return KindVertexGenerate
	case r.vertexPredict != nil:
		return KindVertexPredict
	case r.anthropic != nil:
		return KindAnthropic
	default:
		return ""
	}
}

// Provider returns the provider that produced the response.
func (r ChatResponse) Provider() llm.Provider {
	switch r.Kind() {
	case KindOpenAI:
		return llm.ProviderOpenAI
	case KindGemini:
		return llm.ProviderGemini
	case KindVertexGenerate, KindVertexPredict:
		return llm.ProviderVertex
	case KindAnthropic:
		return llm.ProviderAnthropic
	default:
		return llm.ProviderUndefined
	}
}

func (r ChatResponse) generate() *gemini.GenerateContentResponse {
	if r.gemini != nil {
		return r.gemini
	}
	return r.vertexGenerate
}

// ID returns the provider's response id, or "".
func (r ChatResponse) ID() string {
	switch {
	case r.openAI != nil:
		return r.openAI.ID
	case r.generate() != nil:
		return r.generate().ResponseID
	case r.vertexPredict != nil:
		return r.vertexPredict.DeployedModelID
	case r.anthropic != nil:
		return r.anthropic.ID
	default:
		return ""
	}
}

// IsEmpty reports whether the response has no choices, candidates,
// predictions or content blocks.
func (r ChatResponse) IsEmpty() bool {
	switch {
	case r.openAI != nil:
		return r.openAI.IsEmpty()
	case r.generate() != nil:
		return r.generate().IsEmpty()
	case r.vertexPredict != nil:
		return r.vertexPredict.IsEmpty()
	case r.anthropic != nil:
		return r.anthropic.IsEmpty()
	default:
		return true
	}
}

// Content returns the first choice's text, or "".
func (r ChatResponse) Content() string {
	switch {
	case r.openAI != nil:
		return r.openAI.Content()
	case r.generate() != nil:
		return r.generate().Content()
	case r.anthropic != nil:
		return r.anthropic.Text()
	default:
		return ""
	}
}

// Text is Content.
func (r ChatResponse) Text() string { return r.Content() }

// Usage projects the provider usage block.
func (r ChatResponse) Usage() llm.Usage {
	switch {
	case r.openAI != nil:
		return r.openAI.TokenUsage()
	case r.generate() != nil:
		return r.generate().TokenUsage()
	case r.vertexPredict != nil:
		return r.vertexPredict.TokenUsage()
	case r.anthropic != nil:
		return r.anthropic.TokenUsage()
	default:
		return llm.Usage{}
	}
}

// TokenLogProbs returns every token log-probability record of the first
// choice. Anthropic does not return log probabilities.
func (r ChatResponse) TokenLogProbs() []llm.TokenLogProb {
	switch {
	case r.openAI != nil:
		return r.openAI.LogProbRecords()
	case r.generate() != nil:
		return r.generate().LogProbRecords()
	default:
		return nil
	}
}

// LogProbs returns the records whose token is a single ASCII digit.
func (r ChatResponse) LogProbs() []llm.TokenLogProb {
	return llm.SingleDigitLogProbs(r.TokenLogProbs())
}

// ToolCalls returns the tool calls of the first choice.
func (r ChatResponse) ToolCalls() []ToolCall {
	var out []ToolCall
	switch {
	case r.openAI != nil:
		for _, tc := range r.openAI.ToolCalls() {
			out = append(out, ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: json.RawMessage(tc.Function.Arguments),
			})
		}
	case r.generate() != nil:
		for _, fc := range r.generate().FunctionCalls() {
			args, _ := json.Marshal(fc.Args)
			out = append(out, ToolCall{ID: fc.ID, Name: fc.Name, Arguments: args})
		}
	case r.anthropic != nil:
		for _, tu := range r.anthropic.ToolUses() {
			out = append(out, ToolCall{ID: tu.ID, Name: tu.Name, Arguments: tu.Input})
		}
	}
	return out
}

// ToMessage echoes the response as an assistant message tagged with the
// response's provider, ready to prepend to a chained prompt.
func (r ChatResponse) ToMessage() (prompt.Message, error) {
	switch {
	case r.openAI != nil:
		return prompt.OpenAIMessage(openai.NewTextMessage(llm.RoleAssistant, r.openAI.Content())), nil
	case r.generate() != nil:
		resp := r.generate()
		if resp.IsEmpty() {
			return prompt.Message{}, ErrEmptyResponse
		}
		content := resp.Candidates[0].Content
		if content.Role == "" {
			content.Role = llm.RoleString(llm.ProviderGemini, llm.RoleAssistant)
		}
		return prompt.GeminiMessage(content), nil
	case r.anthropic != nil:
		return prompt.AnthropicMessage(r.anthropic.ToMessage()), nil
	default:
		return prompt.Message{}, fmt.Errorf("%w: %s responses cannot become messages", prompt.ErrMessageParse, r.Kind())
	}
}

// OpenAI returns the OpenAI variant.
func (r ChatResponse) OpenAI() (*openai.ChatResponse, bool) { return r.openAI, r.openAI != nil }

// Gemini returns the Gemini or Vertex generateContent variant.
func (r ChatResponse) Gemini() (*gemini.GenerateContentResponse, bool) {
	g := r.generate()
	return g, g != nil
}

// VertexPredict returns the Vertex predict variant.
func (r ChatResponse) VertexPredict() (*gemini.PredictResponse, bool) {
	return r.vertexPredict, r.vertexPredict != nil
}

// Anthropic returns the Anthropic variant.
func (r ChatResponse) Anthropic() (*anthropic.MessageResponse, bool) {
	return r.anthropic, r.anthropic != nil
}

type responseJSON struct {
	Kind     Kind            `json:"kind"`
	Response json.RawMessage `json:"response"`
}

func (r ChatResponse) inner() any {
	switch {
	case r.openAI != nil:
		return r.openAI
	case r.gemini != nil:
		return r.gemini
	case r.vertexGenerate != nil:
		return r.vertexGenerate
	case r.vertexPredict != nil:
		return r.vertexPredict
	case r.anthropic != nil:
		return r.anthropic
	default:
		return nil
	}
}

// MarshalJSON encodes the response as {"kind": ..., "response": ...}.
func (r ChatResponse) MarshalJSON() ([]byte, error) {
	v := r.inner()
	if v == nil {
		return []byte("null"), nil
	}
	inner, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(responseJSON{Kind: r.Kind(), Response: inner})
}

// UnmarshalJSON decodes a tagged response.
func (r *ChatResponse) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = ChatResponse{}
		return nil
	}
	var raw responseJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := Decode(raw.Kind, raw.Response)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}
