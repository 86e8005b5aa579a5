package anthropic

// OutputFormat is the structured-output body member.
type OutputFormat struct {
	Type   string         `json:"type"`
	Schema map[string]any `json:"schema"`
}

// MessageRequest is the body of a POST /messages call.
type MessageRequest struct {
	Model        string          `json:"model"`
	Messages     []Message       `json:"messages"`
	System       []SystemMessage `json:"system,omitempty"`
	OutputFormat *OutputFormat   `json:"output_format,omitempty"`
	Settings
}

// NewMessageRequest assembles a request. A non-nil schema requests
// structured output; callers must also send the StructuredOutputBeta header.
func NewMessageRequest(model string, messages []Message, system []SystemMessage, settings Settings, schema map[string]any) MessageRequest {
	req := MessageRequest{
		Model:    model,
		Messages: messages,
		System:   system,
		Settings: settings.withDefaults(),
	}
	if schema != nil {
		req.OutputFormat = &OutputFormat{Type: "json_schema", Schema: schema}
	}
	return req
}

// StructuredOutput reports whether the request asks for structured output.
func (r MessageRequest) StructuredOutput() bool {
	return r.OutputFormat != nil
}
