package llm

import (
	"encoding/base64"
	"fmt"
)

// Role represents the role of a message in a conversation.
// Each provider serializes roles to its own strings; see RoleString.
type Role string

const (
	RoleSystem    Role = "system"
	RoleDeveloper Role = "developer"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RoleString maps a Role onto the role string a provider expects on the wire.
// Gemini only knows "user" and "model"; Anthropic has no developer role.
func RoleString(p Provider, r Role) string {
	switch {
	case p.IsGoogle():
		if r == RoleAssistant {
			return "model"
		}
		return "user"
	case p == ProviderAnthropic:
		if r == RoleAssistant {
			return "assistant"
		}
		return "user"
	default:
		return string(r)
	}
}

// ContentKind tags a PromptContent value.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentAudio    ContentKind = "audio"
	ContentDocument ContentKind = "document"
	ContentBinary   ContentKind = "binary"
)

// PromptContent is one piece of user-supplied content. Only text content
// participates in variable binding.
type PromptContent struct {
	Kind      ContentKind `json:"kind"`
	Text      string      `json:"text,omitempty"`
	URL       string      `json:"url,omitempty"`
	MediaType string      `json:"media_type,omitempty"`
	Data      []byte      `json:"data,omitempty"`
}

// Text creates text content.
func Text(s string) PromptContent {
	return PromptContent{Kind: ContentText, Text: s}
}

// Image creates image content referenced by URL.
func Image(url, mediaType string) PromptContent {
	return PromptContent{Kind: ContentImage, URL: url, MediaType: mediaType}
}

// Audio creates audio content referenced by URL.
func Audio(url, mediaType string) PromptContent {
	return PromptContent{Kind: ContentAudio, URL: url, MediaType: mediaType}
}

// Document creates document content referenced by URL.
func Document(url, mediaType string) PromptContent {
	return PromptContent{Kind: ContentDocument, URL: url, MediaType: mediaType}
}

// Binary creates inline binary content. A media type is required.
func Binary(data []byte, mediaType string) PromptContent {
	return PromptContent{Kind: ContentBinary, Data: data, MediaType: mediaType}
}

// Validate checks that the content carries the fields its kind requires.
func (c PromptContent) Validate() error {
	switch c.Kind {
	case ContentText:
		return nil
	case ContentImage, ContentAudio, ContentDocument:
		if c.URL == "" {
			return fmt.Errorf("%s content requires a url", c.Kind)
		}
		return nil
	case ContentBinary:
		if c.MediaType == "" {
			return fmt.Errorf("binary content requires a media type")
		}
		return nil
	default:
		return fmt.Errorf("unknown content kind: %q", c.Kind)
	}
}

// Base64 returns the binary payload encoded as standard base64.
func (c PromptContent) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Data)
}

// Bind replaces ${name} with value. Binding into non-text content fails with
// ErrCannotBindNonStringContent.
func (c PromptContent) Bind(name, value string) (PromptContent, error) {
	if c.Kind != ContentText {
		return c, fmt.Errorf("%w: %s", ErrCannotBindNonStringContent, c.Kind)
	}
	c.Text = BindText(c.Text, name, value)
	return c, nil
}

// Variables returns the ${name} identifiers in text content.
func (c PromptContent) Variables() []string {
	if c.Kind != ContentText {
		return nil
	}
	return ExtractVariables(c.Text)
}

// Usage is the token accounting projected from any provider response.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// TokenLogProb is a single token with its log probability.
type TokenLogProb struct {
	Token   string  `json:"token"`
	LogProb float64 `json:"logprob"`
}
