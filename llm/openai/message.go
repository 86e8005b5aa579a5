package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/demml/potatohead-sub001/llm"
	openai "github.com/sashabaranov/go-openai"
)

// RoleDeveloper is the role OpenAI uses for system instructions on newer models.
const RoleDeveloper = "developer"

// Content part types.
const (
	PartText       = "text"
	PartImageURL   = "image_url"
	PartInputAudio = "input_audio"
	PartFile       = "file"
)

// ImageURL is the payload of an image_url part.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

// InputAudio is the payload of an input_audio part.
type InputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// File is the payload of a file part.
type File struct {
	FileData string `json:"file_data,omitempty"`
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// ContentPart is one element of a chat message's content array.
type ContentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text"`
	ImageURL   *ImageURL   `json:"image_url,omitempty"`
	InputAudio *InputAudio `json:"input_audio,omitempty"`
	File       *File       `json:"file,omitempty"`
}

// MarshalJSON emits only the fields belonging to the part type.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case PartText:
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{p.Type, p.Text})
	case PartImageURL:
		return json.Marshal(struct {
			Type     string    `json:"type"`
			ImageURL *ImageURL `json:"image_url"`
		}{p.Type, p.ImageURL})
	case PartInputAudio:
		return json.Marshal(struct {
			Type       string      `json:"type"`
			InputAudio *InputAudio `json:"input_audio"`
		}{p.Type, p.InputAudio})
	case PartFile:
		return json.Marshal(struct {
			Type string `json:"type"`
			File *File  `json:"file"`
		}{p.Type, p.File})
	default:
		return nil, fmt.Errorf("unknown content part type %q", p.Type)
	}
}

// TextPart creates a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: PartText, Text: text}
}

// ChatMessage is an OpenAI chat message with array content.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
	Name    string        `json:"name,omitempty"`
}

// UnmarshalJSON accepts content either as a plain string or as a part array.
func (m *ChatMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
		Name    string          `json:"name,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Name = raw.Name
	m.Content = nil

	trimmed := strings.TrimSpace(string(raw.Content))
	switch {
	case trimmed == "" || trimmed == "null":
		return nil
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(raw.Content, &s); err != nil {
			return err
		}
		m.Content = []ContentPart{TextPart(s)}
		return nil
	default:
		return json.Unmarshal(raw.Content, &m.Content)
	}
}

// NewMessage builds a chat message from provider-neutral content.
func NewMessage(role llm.Role, contents ...llm.PromptContent) (ChatMessage, error) {
	parts := make([]ContentPart, 0, len(contents))
	for _, c := range contents {
		part, err := partFromContent(c)
		if err != nil {
			return ChatMessage{}, err
		}
		parts = append(parts, part)
	}
	return ChatMessage{Role: roleString(role), Content: parts}, nil
}

// NewTextMessage builds a single text part message.
func NewTextMessage(role llm.Role, text string) ChatMessage {
	return ChatMessage{Role: roleString(role), Content: []ContentPart{TextPart(text)}}
}

func roleString(role llm.Role) string {
	switch role {
	case llm.RoleUser:
		return openai.ChatMessageRoleUser
	case llm.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case llm.RoleSystem:
		return openai.ChatMessageRoleSystem
	case llm.RoleDeveloper:
		return RoleDeveloper
	default:
		return openai.ChatMessageRoleUser
	}
}

func partFromContent(c llm.PromptContent) (ContentPart, error) {
	if err := c.Validate(); err != nil {
		return ContentPart{}, err
	}
	switch c.Kind {
	case llm.ContentText:
		return TextPart(c.Text), nil
	case llm.ContentImage:
		return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: c.URL}}, nil
	case llm.ContentAudio:
		return ContentPart{Type: PartInputAudio, InputAudio: &InputAudio{Data: c.URL, Format: audioFormat(c.MediaType)}}, nil
	case llm.ContentDocument:
		return ContentPart{Type: PartFile, File: &File{FileData: c.URL}}, nil
	default:
		if strings.HasPrefix(c.MediaType, "audio/") {
			return ContentPart{Type: PartInputAudio, InputAudio: &InputAudio{Data: c.Base64(), Format: audioFormat(c.MediaType)}}, nil
		}
		if strings.HasPrefix(c.MediaType, "image/") {
			return ContentPart{Type: PartImageURL, ImageURL: &ImageURL{URL: dataURL(c)}}, nil
		}
		return ContentPart{Type: PartFile, File: &File{FileData: dataURL(c)}}, nil
	}
}

func dataURL(c llm.PromptContent) string {
	return "data:" + c.MediaType + ";base64," + c.Base64()
}

func audioFormat(mediaType string) string {
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "wav"
	}
}

// Bind replaces ${name} in every text part. Other parts are left untouched.
func (m ChatMessage) Bind(name, value string) ChatMessage {
	parts := make([]ContentPart, len(m.Content))
	for i, p := range m.Content {
		if p.Type == PartText {
			p.Text = llm.BindText(p.Text, name, value)
		}
		parts[i] = p
	}
	m.Content = parts
	return m
}

// Variables returns the variable names found in the message's text parts.
func (m ChatMessage) Variables() []string {
	var names []string
	for _, p := range m.Content {
		if p.Type == PartText {
			names = append(names, llm.ExtractVariables(p.Text)...)
		}
	}
	return llm.SortedUnique(names)
}

// Text concatenates the message's text parts.
func (m ChatMessage) Text() string {
	var sb strings.Builder
	for _, p := range m.Content {
		if p.Type == PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}
