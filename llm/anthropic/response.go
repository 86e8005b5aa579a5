package anthropic

import (
	"encoding/json"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/demml/potatohead-sub001/llm"
)

// ToolUse is a tool invocation requested by the model.
type ToolUse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// MessageResponse is the body returned by POST /messages.
type MessageResponse struct {
	anthropic.Message
}

// UnmarshalJSON decodes through the SDK so unknown fields are tolerated.
func (r *MessageResponse) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.Message)
}

// MarshalJSON re-emits the raw SDK JSON when available.
func (r MessageResponse) MarshalJSON() ([]byte, error) {
	if raw := r.Message.RawJSON(); raw != "" {
		return []byte(raw), nil
	}
	return json.Marshal(r.Message)
}

// IsEmpty reports whether no content blocks were returned.
func (r *MessageResponse) IsEmpty() bool {
	return len(r.Content) == 0
}

// Text concatenates the text blocks.
func (r *MessageResponse) Text() string {
	var sb strings.Builder
	for _, block := range r.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(b.Text)
		}
	}
	return sb.String()
}

// ToolUses returns the tool_use blocks.
func (r *MessageResponse) ToolUses() []ToolUse {
	var out []ToolUse
	for _, block := range r.Content {
		if b, ok := block.AsAny().(anthropic.ToolUseBlock); ok {
			input, err := json.Marshal(b.Input)
			if err != nil || b.Input == nil {
				input = json.RawMessage(`{}`)
			}
			out = append(out, ToolUse{ID: b.ID, Name: b.Name, Input: input})
		}
	}
	return out
}

// TokenUsage projects the usage block.
func (r *MessageResponse) TokenUsage() llm.Usage {
	in := r.Usage.InputTokens
	out := r.Usage.OutputTokens
	return llm.Usage{PromptTokens: in, CompletionTokens: out, TotalTokens: in + out}
}

// ToMessage echoes the response content as an assistant message.
func (r *MessageResponse) ToMessage() Message {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(r.Content))
	for _, block := range r.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, anthropic.NewTextBlock(b.Text))
		case anthropic.ToolUseBlock:
			blocks = append(blocks, anthropic.NewToolUseBlock(b.ID, b.Input, b.Name))
		}
	}
	return Message{anthropic.NewAssistantMessage(blocks...)}
}
