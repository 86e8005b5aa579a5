package prompt

import (
	"encoding/json"
	"fmt"

	"dario.cat/mergo"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/anthropic"
	"github.com/demml/potatohead-sub001/llm/gemini"
	"github.com/demml/potatohead-sub001/llm/openai"
	"github.com/samber/lo"
)

// RequestKind tags a ProviderRequest.
type RequestKind string

const (
	RequestOpenAIChatV1       RequestKind = "OpenAIChatV1"
	RequestGeminiContentV1    RequestKind = "GeminiContentV1"
	RequestAnthropicMessageV1 RequestKind = "AnthropicMessageV1"
)

// extraBodyKey is the settings field removed from the wire body and merged
// back in as overrides.
const extraBodyKey = "extra_body"

// ProviderRequest is a provider-specific request body. Exactly one variant
// is set.
type ProviderRequest struct {
	OpenAI    *openai.ChatRequest
	Gemini    *gemini.GenerateContentRequest
	Anthropic *anthropic.MessageRequest
}

// ToRequest builds the provider request for the prompt.
func (p *Prompt) ToRequest() (ProviderRequest, error) {
	if err := p.Validate(); err != nil {
		return ProviderRequest{}, err
	}
	switch p.Provider.Family() {
	case llm.ProviderOpenAI:
		return p.openAIRequest()
	case llm.ProviderGemini:
		return p.geminiRequest()
	case llm.ProviderAnthropic:
		return p.anthropicRequest()
	default:
		return ProviderRequest{}, fmt.Errorf("%w: %s", ErrUndefinedProvider, p.Provider)
	}
}

func (p *Prompt) openAIRequest() (ProviderRequest, error) {
	var system, messages []openai.ChatMessage
	for _, m := range p.SystemInstructions {
		msg, _ := m.OpenAI()
		system = append(system, msg)
	}
	for _, m := range p.Messages {
		msg, _ := m.OpenAI()
		messages = append(messages, msg)
	}
	settings, _ := p.Settings.OpenAI()
	req := openai.NewChatRequest(p.Model, system, messages, settings, p.ResponseSchema)
	return ProviderRequest{OpenAI: &req}, nil
}

func (p *Prompt) geminiRequest() (ProviderRequest, error) {
	var system, contents []gemini.Content
	for _, m := range p.SystemInstructions {
		c, _ := m.Gemini()
		system = append(system, c)
	}
	for _, m := range p.Messages {
		c, _ := m.Gemini()
		contents = append(contents, c)
	}
	settings, _ := p.Settings.Gemini()
	req, err := gemini.NewGenerateContentRequest(contents, system, settings, p.ResponseSchema)
	if err != nil {
		return ProviderRequest{}, err
	}
	return ProviderRequest{Gemini: &req}, nil
}

func (p *Prompt) anthropicRequest() (ProviderRequest, error) {
	var system []anthropic.SystemMessage
	var messages []anthropic.Message
	for _, m := range p.SystemInstructions {
		if s, ok := m.AnthropicSystem(); ok {
			system = append(system, s)
			continue
		}
		// a regular message used as a system instruction contributes its text
		if msg, ok := m.Anthropic(); ok {
			system = append(system, anthropic.NewSystemMessage(msg.Text()))
		}
	}
	for _, m := range p.Messages {
		msg, _ := m.Anthropic()
		messages = append(messages, msg)
	}
	settings := anthropic.DefaultSettings()
	if s, ok := p.Settings.Anthropic(); ok {
		settings = s
	}
	req := anthropic.NewMessageRequest(p.Model, messages, system, settings, p.ResponseSchema)
	return ProviderRequest{Anthropic: &req}, nil
}

// Kind returns the variant tag.
func (r ProviderRequest) Kind() RequestKind {
	switch {
	case r.OpenAI != nil:
		return RequestOpenAIChatV1
	case r.Gemini != nil:
		return RequestGeminiContentV1
	case r.Anthropic != nil:
		return RequestAnthropicMessageV1
	default:
		return ""
	}
}

// Model returns the model named by the request, if the body carries it.
// Gemini requests carry the model in the URL instead.
func (r ProviderRequest) Model() string {
	switch {
	case r.OpenAI != nil:
		return r.OpenAI.Model
	case r.Anthropic != nil:
		return r.Anthropic.Model
	default:
		return ""
	}
}

// ExtraBody returns the extra body to merge into the wire body.
func (r ProviderRequest) ExtraBody() map[string]any {
	switch {
	case r.OpenAI != nil:
		return r.OpenAI.ExtraBody
	case r.Gemini != nil:
		return r.Gemini.ExtraBody
	case r.Anthropic != nil:
		return r.Anthropic.ExtraBody
	default:
		return nil
	}
}

// StructuredOutput reports whether the request asks for schema-constrained
// output.
func (r ProviderRequest) StructuredOutput() bool {
	switch {
	case r.OpenAI != nil:
		return r.OpenAI.ResponseFormat != nil
	case r.Gemini != nil:
		return r.Gemini.GenerationConfig != nil && r.Gemini.GenerationConfig.ResponseJSONSchema != nil
	case r.Anthropic != nil:
		return r.Anthropic.StructuredOutput()
	default:
		return false
	}
}

// Body returns the wire body: the canonical serialization with extra_body
// removed and then merged over it. For Gemini, generationConfig is merged
// key by key.
func (r ProviderRequest) Body() (map[string]any, error) {
	var (
		v      any
		nested []string
	)
	switch {
	case r.OpenAI != nil:
		v = r.OpenAI
	case r.Gemini != nil:
		v = r.Gemini
		nested = []string{"generationConfig"}
	case r.Anthropic != nil:
		v = r.Anthropic
	default:
		return nil, fmt.Errorf("%w: empty provider request", ErrMessageParse)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, llm.NewSerializationError("failed to serialize request", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, llm.NewSerializationError("failed to serialize request", err)
	}
	delete(body, extraBodyKey)

	if err := MergeExtraBody(body, r.ExtraBody(), nested...); err != nil {
		return nil, err
	}
	return body, nil
}

// MergeExtraBody merges extra over body. Top-level keys in extra replace
// those in body. Keys listed in nested are merged one level down when both
// sides hold objects, with extra winning on conflicts.
func MergeExtraBody(body, extra map[string]any, nested ...string) error {
	for key, value := range extra {
		src, srcIsMap := value.(map[string]any)
		dst, dstIsMap := body[key].(map[string]any)
		if srcIsMap && dstIsMap && lo.Contains(nested, key) {
			if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
				return llm.NewSerializationError("failed to merge extra body", err)
			}
			body[key] = dst
			continue
		}
		body[key] = value
	}
	return nil
}

type requestJSON struct {
	Kind    RequestKind     `json:"kind"`
	Request json.RawMessage `json:"request"`
}

// MarshalJSON encodes the request as {"kind": ..., "request": ...}.
func (r ProviderRequest) MarshalJSON() ([]byte, error) {
	var (
		inner []byte
		err   error
	)
	switch {
	case r.OpenAI != nil:
		inner, err = json.Marshal(r.OpenAI)
	case r.Gemini != nil:
		inner, err = json.Marshal(r.Gemini)
	case r.Anthropic != nil:
		inner, err = json.Marshal(r.Anthropic)
	default:
		return nil, fmt.Errorf("%w: empty provider request", ErrMessageParse)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(requestJSON{Kind: r.Kind(), Request: inner})
}

// UnmarshalJSON decodes a tagged request.
func (r *ProviderRequest) UnmarshalJSON(data []byte) error {
	var raw requestJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*r = ProviderRequest{}
	switch raw.Kind {
	case RequestOpenAIChatV1:
		r.OpenAI = &openai.ChatRequest{}
		return json.Unmarshal(raw.Request, r.OpenAI)
	case RequestGeminiContentV1:
		r.Gemini = &gemini.GenerateContentRequest{}
		return json.Unmarshal(raw.Request, r.Gemini)
	case RequestAnthropicMessageV1:
		r.Anthropic = &anthropic.MessageRequest{}
		return json.Unmarshal(raw.Request, r.Anthropic)
	default:
		return fmt.Errorf("%w: unknown request kind %q", ErrMessageParse, raw.Kind)
	}
}
