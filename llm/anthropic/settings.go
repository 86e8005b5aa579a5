package anthropic

import (
	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// DefaultMaxTokens is required by the messages API and used when unset.
const DefaultMaxTokens = 4096

// ThinkingConfig enables extended thinking.
type ThinkingConfig struct {
	Type         string `json:"type" yaml:"type"`
	BudgetTokens int    `json:"budget_tokens,omitempty" yaml:"budget_tokens,omitempty"`
}

// Metadata is request metadata.
type Metadata struct {
	UserID string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
}

// Settings holds the messages API knobs. They flatten into the request body.
type Settings struct {
	MaxTokens     int                             `json:"max_tokens" yaml:"max_tokens"`
	Metadata      *Metadata                       `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	ServiceTier   string                          `json:"service_tier,omitempty" yaml:"service_tier,omitempty"`
	StopSequences []string                        `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty"`
	Stream        *bool                           `json:"stream,omitempty" yaml:"stream,omitempty"`
	Temperature   *float32                        `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Thinking      *ThinkingConfig                 `json:"thinking,omitempty" yaml:"thinking,omitempty"`
	ToolChoice    *anthropic.ToolChoiceUnionParam `json:"tool_choice,omitempty" yaml:"-"`
	Tools         []anthropic.ToolUnionParam      `json:"tools,omitempty" yaml:"-"`
	TopK          *int                            `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	TopP          *float32                        `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	ExtraBody     map[string]any                  `json:"extra_body,omitempty" yaml:"extra_body,omitempty"`
}

// DefaultSettings returns settings with the default max_tokens.
func DefaultSettings() Settings {
	return Settings{MaxTokens: DefaultMaxTokens}
}

// withDefaults fills required fields left at zero.
func (s Settings) withDefaults() Settings {
	if s.MaxTokens == 0 {
		s.MaxTokens = DefaultMaxTokens
	}
	return s
}
