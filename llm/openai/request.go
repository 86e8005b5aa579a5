package openai

import (
	openai "github.com/sashabaranov/go-openai"
)

// DefaultSchemaName is used when a response schema has no title.
const DefaultSchemaName = "StructuredOutput"

// JSONSchema is the json_schema member of a structured response_format.
type JSONSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

// ResponseFormat requests structured output.
type ResponseFormat struct {
	Type       openai.ChatCompletionResponseFormatType `json:"type"`
	JSONSchema *JSONSchema                             `json:"json_schema,omitempty"`
}

// NewResponseFormat wraps a JSON schema in a strict json_schema response format.
func NewResponseFormat(schema map[string]any) *ResponseFormat {
	name := DefaultSchemaName
	if title, ok := schema["title"].(string); ok && title != "" {
		name = title
	}
	return &ResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &JSONSchema{
			Name:   name,
			Schema: schema,
			Strict: true,
		},
	}
}

// ChatRequest is the body of a POST /chat/completions call.
// Settings are flattened into the top-level object.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	ChatSettings
}

// NewChatRequest assembles a request. System instructions precede messages.
func NewChatRequest(model string, system, messages []ChatMessage, settings ChatSettings, schema map[string]any) ChatRequest {
	all := make([]ChatMessage, 0, len(system)+len(messages))
	all = append(all, system...)
	all = append(all, messages...)

	req := ChatRequest{
		Model:        model,
		Messages:     all,
		ChatSettings: settings,
	}
	if schema != nil {
		req.ResponseFormat = NewResponseFormat(schema)
	}
	return req
}
