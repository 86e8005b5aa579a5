package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/anthropic"
	"github.com/demml/potatohead-sub001/llm/gemini"
	"github.com/demml/potatohead-sub001/llm/openai"
)

// MessageKind tags the wire format a Message carries.
type MessageKind string

const (
	KindOpenAI          MessageKind = "OpenAIMessageV1"
	KindAnthropic       MessageKind = "AnthropicMessageV1"
	KindAnthropicSystem MessageKind = "AnthropicSystemMessageV1"
	KindGemini          MessageKind = "GeminiContentV1"
)

// Message is a provider-tagged message. Exactly one variant is set.
type Message struct {
	openAI          *openai.ChatMessage
	anthropic       *anthropic.Message
	anthropicSystem *anthropic.SystemMessage
	gemini          *gemini.Content
}

// OpenAIMessage wraps an OpenAI chat message.
func OpenAIMessage(m openai.ChatMessage) Message {
	return Message{openAI: &m}
}

// AnthropicMessage wraps an Anthropic message.
func AnthropicMessage(m anthropic.Message) Message {
	return Message{anthropic: &m}
}

// AnthropicSystemMessage wraps an Anthropic system text block.
func AnthropicSystemMessage(m anthropic.SystemMessage) Message {
	return Message{anthropicSystem: &m}
}

// GeminiMessage wraps Gemini content.
func GeminiMessage(c gemini.Content) Message {
	return Message{gemini: &c}
}

// NewMessage builds a message for provider from neutral content.
func NewMessage(provider llm.Provider, role llm.Role, contents ...llm.PromptContent) (Message, error) {
	switch provider.Family() {
	case llm.ProviderOpenAI:
		m, err := openai.NewMessage(role, contents...)
		if err != nil {
			return Message{}, err
		}
		return OpenAIMessage(m), nil
	case llm.ProviderGemini:
		c, err := gemini.NewContent(role, contents...)
		if err != nil {
			return Message{}, err
		}
		return GeminiMessage(c), nil
	case llm.ProviderAnthropic:
		m, err := anthropic.NewMessage(role, contents...)
		if err != nil {
			return Message{}, err
		}
		return AnthropicMessage(m), nil
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUndefinedProvider, provider)
	}
}

// UserMessage builds a text user message for provider.
func UserMessage(provider llm.Provider, text string) (Message, error) {
	return NewMessage(provider, llm.RoleUser, llm.Text(text))
}

// AssistantMessage builds a text assistant message for provider.
func AssistantMessage(provider llm.Provider, text string) (Message, error) {
	return NewMessage(provider, llm.RoleAssistant, llm.Text(text))
}

// SystemInstruction builds a system instruction in the provider's default
// system form: a developer message for OpenAI, user-role content for Gemini
// and a system text block for Anthropic.
func SystemInstruction(provider llm.Provider, text string) (Message, error) {
	switch provider.Family() {
	case llm.ProviderOpenAI:
		return OpenAIMessage(openai.NewTextMessage(llm.RoleDeveloper, text)), nil
	case llm.ProviderGemini:
		return GeminiMessage(gemini.NewTextContent(llm.RoleUser, text)), nil
	case llm.ProviderAnthropic:
		return AnthropicSystemMessage(anthropic.NewSystemMessage(text)), nil
	default:
		return Message{}, fmt.Errorf("%w: %s", ErrUndefinedProvider, provider)
	}
}

// Kind returns the variant tag, or "" for the zero Message.
func (m Message) Kind() MessageKind {
	switch {
	case m.openAI != nil:
		return KindOpenAI
	case m.anthropic != nil:
		return KindAnthropic
	case m.anthropicSystem != nil:
		return KindAnthropicSystem
	case m.gemini != nil:
		return KindGemini
	default:
		return ""
	}
}

// Provider returns the provider family of the message.
func (m Message) Provider() llm.Provider {
	switch m.Kind() {
	case KindOpenAI:
		return llm.ProviderOpenAI
	case KindAnthropic, KindAnthropicSystem:
		return llm.ProviderAnthropic
	case KindGemini:
		return llm.ProviderGemini
	default:
		return llm.ProviderUndefined
	}
}

// Role returns the wire role string.
func (m Message) Role() string {
	switch m.Kind() {
	case KindOpenAI:
		return m.openAI.Role
	case KindAnthropic:
		return m.anthropic.RoleName()
	case KindAnthropicSystem:
		return string(llm.RoleSystem)
	case KindGemini:
		return m.gemini.Role
	default:
		return ""
	}
}

// Text concatenates the message's text content.
func (m Message) Text() string {
	switch m.Kind() {
	case KindOpenAI:
		return m.openAI.Text()
	case KindAnthropic:
		return m.anthropic.Text()
	case KindAnthropicSystem:
		return m.anthropicSystem.Text
	case KindGemini:
		return m.gemini.Text()
	default:
		return ""
	}
}

// Bind returns a copy with ${name} replaced by value in every text part.
func (m Message) Bind(name, value string) Message {
	switch m.Kind() {
	case KindOpenAI:
		return OpenAIMessage(m.openAI.Bind(name, value))
	case KindAnthropic:
		return AnthropicMessage(m.anthropic.Bind(name, value))
	case KindAnthropicSystem:
		return AnthropicSystemMessage(m.anthropicSystem.Bind(name, value))
	case KindGemini:
		return GeminiMessage(m.gemini.Bind(name, value))
	default:
		return m
	}
}

// Variables returns the sorted ${name} identifiers in the message.
func (m Message) Variables() []string {
	switch m.Kind() {
	case KindOpenAI:
		return m.openAI.Variables()
	case KindAnthropic:
		return m.anthropic.Variables()
	case KindAnthropicSystem:
		return m.anthropicSystem.Variables()
	case KindGemini:
		return m.gemini.Variables()
	default:
		return nil
	}
}

// OpenAI returns the OpenAI variant.
func (m Message) OpenAI() (openai.ChatMessage, bool) {
	if m.openAI == nil {
		return openai.ChatMessage{}, false
	}
	return *m.openAI, true
}

// Anthropic returns the Anthropic message variant.
func (m Message) Anthropic() (anthropic.Message, bool) {
	if m.anthropic == nil {
		return anthropic.Message{}, false
	}
	return *m.anthropic, true
}

// AnthropicSystem returns the Anthropic system variant.
func (m Message) AnthropicSystem() (anthropic.SystemMessage, bool) {
	if m.anthropicSystem == nil {
		return anthropic.SystemMessage{}, false
	}
	return *m.anthropicSystem, true
}

// Gemini returns the Gemini variant.
func (m Message) Gemini() (gemini.Content, bool) {
	if m.gemini == nil {
		return gemini.Content{}, false
	}
	return *m.gemini, true
}

type messageJSON struct {
	Kind    MessageKind     `json:"kind"`
	Message json.RawMessage `json:"message"`
}

// MarshalJSON encodes the message as {"kind": ..., "message": ...}.
func (m Message) MarshalJSON() ([]byte, error) {
	var (
		inner []byte
		err   error
	)
	switch m.Kind() {
	case KindOpenAI:
		inner, err = json.Marshal(m.openAI)
	case KindAnthropic:
		inner, err = json.Marshal(m.anthropic)
	case KindAnthropicSystem:
		inner, err = json.Marshal(m.anthropicSystem)
	case KindGemini:
		inner, err = json.Marshal(m.gemini)
	default:
		return nil, fmt.Errorf("%w: empty message", ErrMessageParse)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageJSON{Kind: m.Kind(), Message: inner})
}

// UnmarshalJSON decodes a tagged message.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw messageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Message{}
	switch raw.Kind {
	case KindOpenAI:
		var v openai.ChatMessage
		if err := json.Unmarshal(raw.Message, &v); err != nil {
			return err
		}
		m.openAI = &v
	case KindAnthropic:
		var v anthropic.Message
		if err := json.Unmarshal(raw.Message, &v); err != nil {
			return err
		}
		m.anthropic = &v
	case KindAnthropicSystem:
		var v anthropic.SystemMessage
		if err := json.Unmarshal(raw.Message, &v); err != nil {
			return err
		}
		m.anthropicSystem = &v
	case KindGemini:
		var v gemini.Content
		if err := json.Unmarshal(raw.Message, &v); err != nil {
			return err
		}
		m.gemini = &v
	default:
		return fmt.Errorf("%w: unknown message kind %q", ErrMessageParse, raw.Kind)
	}
	return nil
}
