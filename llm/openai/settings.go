package openai

import (
	openai "github.com/sashabaranov/go-openai"
)

// AudioParam selects the output voice and format for audio modalities.
type AudioParam struct {
	Format string `json:"format" yaml:"format"`
	Voice  string `json:"voice" yaml:"voice"`
}

// Prediction is predicted output content used to speed up regeneration.
type Prediction struct {
	Type    string `json:"type" yaml:"type"`
	Content any    `json:"content" yaml:"content"`
}

// StreamOptions configures streamed responses.
type StreamOptions struct {
	IncludeObfuscation *bool `json:"include_obfuscation,omitempty" yaml:"include_obfuscation,omitempty"`
	IncludeUsage       *bool `json:"include_usage,omitempty" yaml:"include_usage,omitempty"`
}

// ChatSettings holds every chat-completions knob the client understands.
// Unset fields are omitted from the request body.
type ChatSettings struct {
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty" yaml:"max_completion_tokens,omitempty"`
	Temperature         *float32          `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP                *float32          `json:"top_p,omitempty" yaml:"top_p,omitempty"`
	TopK                *int              `json:"top_k,omitempty" yaml:"top_k,omitempty"`
	FrequencyPenalty    *float32          `json:"frequency_penalty,omitempty" yaml:"frequency_penalty,omitempty"`
	Timeout             *float32          `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	ParallelToolCalls   *bool             `json:"parallel_tool_calls,omitempty" yaml:"parallel_tool_calls,omitempty"`
	Seed                *int64            `json:"seed,omitempty" yaml:"seed,omitempty"`
	LogitBias           map[string]int    `json:"logit_bias,omitempty" yaml:"logit_bias,omitempty"`
	Stop                []string          `json:"stop,omitempty" yaml:"stop,omitempty"`
	LogProbs            *bool             `json:"logprobs,omitempty" yaml:"logprobs,omitempty"`
	Audio               *AudioParam       `json:"audio,omitempty" yaml:"audio,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Modalities          []string          `json:"modalities,omitempty" yaml:"modalities,omitempty"`
	N                   *int              `json:"n,omitempty" yaml:"n,omitempty"`
	Prediction          *Prediction       `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	PresencePenalty     *float32          `json:"presence_penalty,omitempty" yaml:"presence_penalty,omitempty"`
	PromptCacheKey      string            `json:"prompt_cache_key,omitempty" yaml:"prompt_cache_key,omitempty"`
	ReasoningEffort     string            `json:"reasoning_effort,omitempty" yaml:"reasoning_effort,omitempty"`
	SafetyIdentifier    string            `json:"safety_identifier,omitempty" yaml:"safety_identifier,omitempty"`
	ServiceTier         string            `json:"service_tier,omitempty" yaml:"service_tier,omitempty"`
	Store               *bool             `json:"store,omitempty" yaml:"store,omitempty"`
	Stream              *bool             `json:"stream,omitempty" yaml:"stream,omitempty"`
	StreamOptions       *StreamOptions    `json:"stream_options,omitempty" yaml:"stream_options,omitempty"`
	ToolChoice          any               `json:"tool_choice,omitempty" yaml:"tool_choice,omitempty"`
	Tools               []openai.Tool     `json:"tools,omitempty" yaml:"tools,omitempty"`
	TopLogProbs         *int              `json:"top_logprobs,omitempty" yaml:"top_logprobs,omitempty"`
	Verbosity           string            `json:"verbosity,omitempty" yaml:"verbosity,omitempty"`
	ExtraBody           map[string]any    `json:"extra_body,omitempty" yaml:"extra_body,omitempty"`
}

// DefaultChatSettings returns the settings used when a prompt names none.
func DefaultChatSettings() ChatSettings {
	return ChatSettings{}
}
