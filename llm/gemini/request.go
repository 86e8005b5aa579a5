package gemini

import "errors"

// ErrMoreThanOneSystemInstruction is returned when more than one system
// instruction is supplied. Gemini accepts a single systemInstruction.
var ErrMoreThanOneSystemInstruction = errors.New("gemini supports only one system instruction")

// GenerateContentRequest is the body of a :generateContent call.
type GenerateContentRequest struct {
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
	Settings
}

// NewGenerateContentRequest assembles a request and applies the response
// schema to generationConfig when one is given.
func NewGenerateContentRequest(contents, system []Content, settings Settings, schema map[string]any) (GenerateContentRequest, error) {
	if len(system) > 1 {
		return GenerateContentRequest{}, ErrMoreThanOneSystemInstruction
	}
	req := GenerateContentRequest{
		Contents: contents,
		Settings: settings,
	}
	if len(system) == 1 {
		instr := system[0]
		req.SystemInstruction = &instr
	}
	if schema != nil {
		req.Settings = settings.WithStructuredOutput(schema)
	}
	return req, nil
}
