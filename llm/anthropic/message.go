// Package anthropic adapts Anthropic SDK param and response types to the
// messages API request shapes used by potatohead.
package anthropic

import (
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/demml/potatohead-sub001/llm"
)

// Version is sent as the anthropic-version header.
const Version = "2023-06-01"

// StructuredOutputBeta is the anthropic-beta header value enabling
// structured outputs.
const StructuredOutputBeta = "structured-outputs-2025-11-13"

// Message is a user or assistant message.
type Message struct {
	anthropic.MessageParam
}

// SystemMessage is one system text block.
type SystemMessage struct {
	anthropic.TextBlockParam
}

// MarshalJSON delegates to the SDK param encoder.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.MessageParam)
}

// UnmarshalJSON delegates to the SDK param decoder.
func (m *Message) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.MessageParam)
}

// MarshalJSON delegates to the SDK param encoder.
func (m SystemMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.TextBlockParam)
}

// UnmarshalJSON delegates to the SDK param decoder.
func (m *SystemMessage) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &m.TextBlockParam)
}

// NewSystemMessage builds a system text block.
func NewSystemMessage(text string) SystemMessage {
	return SystemMessage{anthropic.TextBlockParam{Text: text}}
}

// NewTextMessage builds a single text block message.
func NewTextMessage(role llm.Role, text string) Message {
	return newMessage(role, []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(text)})
}

// NewMessage builds a message from provider-neutral content.
func NewMessage(role llm.Role, contents ...llm.PromptContent) (Message, error) {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(contents))
	for _, c := range contents {
		if err := c.Validate(); err != nil {
			return Message{}, err
		}
		switch c.Kind {
		case llm.ContentText:
			blocks = append(blocks, anthropic.NewTextBlock(c.Text))
		case llm.ContentImage:
			blocks = append(blocks, anthropic.NewImageBlock(anthropic.URLImageSourceParam{URL: c.URL}))
		case llm.ContentDocument:
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.URLPDFSourceParam{URL: c.URL}))
		case llm.ContentBinary:
			if strings.HasPrefix(c.MediaType, "image/") {
				blocks = append(blocks, anthropic.NewImageBlockBase64(c.MediaType, c.Base64()))
				continue
			}
			blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{Data: c.Base64()}))
		default:
			return Message{}, llm.NewConstructionError("anthropic does not accept "+string(c.Kind)+" content", nil)
		}
	}
	return newMessage(role, blocks), nil
}

func newMessage(role llm.Role, blocks []anthropic.ContentBlockParamUnion) Message {
	if role == llm.RoleAssistant {
		return Message{anthropic.NewAssistantMessage(blocks...)}
	}
	return Message{anthropic.NewUserMessage(blocks...)}
}

// RoleName returns the message role string.
func (m Message) RoleName() string {
	return string(m.MessageParam.Role)
}

// Bind replaces ${name} in every text block.
func (m Message) Bind(name, value string) Message {
	blocks := make([]anthropic.ContentBlockParamUnion, len(m.Content))
	for i, b := range m.Content {
		if b.OfText != nil {
			text := *b.OfText
			text.Text = llm.BindText(text.Text, name, value)
			b.OfText = &text
		}
		blocks[i] = b
	}
	out := m.MessageParam
	out.Content = blocks
	return Message{out}
}

// Variables returns the variable names in the message's text blocks.
func (m Message) Variables() []string {
	var names []string
	for _, b := range m.Content {
		if b.OfText != nil {
			names = append(names, llm.ExtractVariables(b.OfText.Text)...)
		}
	}
	return llm.SortedUnique(names)
}

// Text concatenates the message's text blocks.
func (m Message) Text() string {
	var sb strings.Builder
	for _, b := range m.Content {
		if b.OfText != nil {
			sb.WriteString(b.OfText.Text)
		}
	}
	return sb.String()
}

// Bind replaces ${name} in the system text.
func (m SystemMessage) Bind(name, value string) SystemMessage {
	out := m.TextBlockParam
	out.Text = llm.BindText(out.Text, name, value)
	return SystemMessage{out}
}

// Variables returns the variable names in the system text.
func (m SystemMessage) Variables() []string {
	return llm.ExtractVariables(m.Text)
}
