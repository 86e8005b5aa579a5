// Package gemini holds the wire types of the Gemini generateContent,
// embedContent and Vertex predict APIs.
package gemini

import (
	"strings"

	"github.com/demml/potatohead-sub001/llm"
)

// Blob is inline binary data.
type Blob struct {
	MimeType    string `json:"mimeType"`
	Data        string `json:"data"`
	DisplayName string `json:"displayName,omitempty"`
}

// FileData references content stored at a URI.
type FileData struct {
	MimeType    string `json:"mimeType"`
	FileURI     string `json:"fileUri"`
	DisplayName string `json:"displayName,omitempty"`
}

// FunctionCall is a model-requested function invocation.
type FunctionCall struct {
	Name string         `json:"name"`
	ID   string         `json:"id,omitempty"`
	Args map[string]any `json:"args,omitempty"`
}

// FunctionResponse carries the result of a function call back to the model.
type FunctionResponse struct {
	Name     string         `json:"name"`
	ID       string         `json:"id,omitempty"`
	Response map[string]any `json:"response"`
}

// ExecutableCode is code generated by the model for execution.
type ExecutableCode struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// CodeExecutionResult is the outcome of running ExecutableCode.
type CodeExecutionResult struct {
	Outcome string `json:"outcome"`
	Output  string `json:"output,omitempty"`
}

// Part is one piece of a Content. Exactly one data field is set.
type Part struct {
	Text                *string              `json:"text,omitempty"`
	InlineData          *Blob                `json:"inlineData,omitempty"`
	FileData            *FileData            `json:"fileData,omitempty"`
	FunctionCall        *FunctionCall        `json:"functionCall,omitempty"`
	FunctionResponse    *FunctionResponse    `json:"functionResponse,omitempty"`
	ExecutableCode      *ExecutableCode      `json:"executableCode,omitempty"`
	CodeExecutionResult *CodeExecutionResult `json:"codeExecutionResult,omitempty"`
	Thought             *bool                `json:"thought,omitempty"`
	ThoughtSignature    string               `json:"thoughtSignature,omitempty"`
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: &text}
}

// IsText reports whether the part carries text.
func (p Part) IsText() bool {
	return p.Text != nil
}

// Content is a role plus parts. Gemini roles are "user" and "model".
type Content struct {
	Role  string `json:"role"`
	Parts []Part `json:"parts"`
}

// NewContent builds Gemini content from provider-neutral content.
func NewContent(role llm.Role, contents ...llm.PromptContent) (Content, error) {
	parts := make([]Part, 0, len(contents))
	for _, c := range contents {
		if err := c.Validate(); err != nil {
			return Content{}, err
		}
		switch c.Kind {
		case llm.ContentText:
			parts = append(parts, TextPart(c.Text))
		case llm.ContentBinary:
			parts = append(parts, Part{InlineData: &Blob{MimeType: c.MediaType, Data: c.Base64()}})
		default:
			parts = append(parts, Part{FileData: &FileData{MimeType: mimeType(c), FileURI: c.URL}})
		}
	}
	return Content{Role: llm.RoleString(llm.ProviderGemini, role), Parts: parts}, nil
}

// NewTextContent builds a single text part content.
func NewTextContent(role llm.Role, text string) Content {
	return Content{Role: llm.RoleString(llm.ProviderGemini, role), Parts: []Part{TextPart(text)}}
}

func mimeType(c llm.PromptContent) string {
	if c.MediaType != "" {
		return c.MediaType
	}
	switch c.Kind {
	case llm.ContentImage:
		return "image/png"
	case llm.ContentAudio:
		return "audio/wav"
	default:
		return "application/pdf"
	}
}

// Bind replaces ${name} in every text part.
func (c Content) Bind(name, value string) Content {
	parts := make([]Part, len(c.Parts))
	for i, p := range c.Parts {
		if p.Text != nil {
			bound := llm.BindText(*p.Text, name, value)
			p.Text = &bound
		}
		parts[i] = p
	}
	c.Parts = parts
	return c
}

// Variables returns the variable names in the content's text parts.
func (c Content) Variables() []string {
	var names []string
	for _, p := range c.Parts {
		if p.Text != nil {
			names = append(names, llm.ExtractVariables(*p.Text)...)
		}
	}
	return llm.SortedUnique(names)
}

// Text concatenates the non-thought text parts.
func (c Content) Text() string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if p.Text == nil || (p.Thought != nil && *p.Thought) {
			continue
		}
		sb.WriteString(*p.Text)
	}
	return sb.String()
}
