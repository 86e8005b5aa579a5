package openai

import (
	"github.com/demml/potatohead-sub001/llm"
	openai "github.com/sashabaranov/go-openai"
)

// TopLogProb is an alternative token at one position.
type TopLogProb struct {
	Token   string  `json:"token"`
	LogProb float64 `json:"logprob"`
	Bytes   []int   `json:"bytes,omitempty"`
}

// LogProb is the log probability record of one generated token.
type LogProb struct {
	Token       string       `json:"token"`
	LogProb     float64      `json:"logprob"`
	Bytes       []int        `json:"bytes,omitempty"`
	TopLogProbs []TopLogProb `json:"top_logprobs,omitempty"`
}

// LogProbs holds per-token records for content and refusal.
type LogProbs struct {
	Content []LogProb `json:"content,omitempty"`
	Refusal []LogProb `json:"refusal,omitempty"`
}

// URLCitation is a web citation attached to a message.
type URLCitation struct {
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Title      string `json:"title"`
	URL        string `json:"url"`
}

// Annotation wraps a URL citation.
type Annotation struct {
	Type        string       `json:"type"`
	URLCitation *URLCitation `json:"url_citation,omitempty"`
}

// ResponseAudio is audio output returned by the model.
type ResponseAudio struct {
	ID         string `json:"id"`
	Data       string `json:"data"`
	ExpiresAt  int64  `json:"expires_at"`
	Transcript string `json:"transcript"`
}

// CompletionMessage is the assistant message of a choice.
type CompletionMessage struct {
	Role        string            `json:"role"`
	Content     *string           `json:"content"`
	Refusal     *string           `json:"refusal,omitempty"`
	Annotations []Annotation      `json:"annotations,omitempty"`
	ToolCalls   []openai.ToolCall `json:"tool_calls,omitempty"`
	Audio       *ResponseAudio    `json:"audio,omitempty"`
}

// Choice is one completion alternative.
type Choice struct {
	Index        int                 `json:"index"`
	Message      CompletionMessage   `json:"message"`
	FinishReason openai.FinishReason `json:"finish_reason"`
	LogProbs     *LogProbs           `json:"logprobs,omitempty"`
}

// ChatResponse is the body returned by POST /chat/completions.
type ChatResponse struct {
	ID                string       `json:"id"`
	Object            string       `json:"object"`
	Created           int64        `json:"created"`
	Model             string       `json:"model"`
	Choices           []Choice     `json:"choices"`
	Usage             openai.Usage `json:"usage"`
	ServiceTier       string       `json:"service_tier,omitempty"`
	SystemFingerprint string       `json:"system_fingerprint,omitempty"`
}

// IsEmpty reports whether the response has no choices.
func (r *ChatResponse) IsEmpty() bool {
	return len(r.Choices) == 0
}

// Content returns the first choice's text content, or "" if absent.
func (r *ChatResponse) Content() string {
	if len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
		return ""
	}
	return *r.Choices[0].Message.Content
}

// HasContent reports whether the first choice carries text content.
func (r *ChatResponse) HasContent() bool {
	return len(r.Choices) > 0 && r.Choices[0].Message.Content != nil
}

// ToolCalls returns the first choice's tool calls.
func (r *ChatResponse) ToolCalls() []openai.ToolCall {
	if len(r.Choices) == 0 {
		return nil
	}
	return r.Choices[0].Message.ToolCalls
}

// TokenUsage projects the usage block.
func (r *ChatResponse) TokenUsage() llm.Usage {
	return llm.Usage{
		PromptTokens:     int64(r.Usage.PromptTokens),
		CompletionTokens: int64(r.Usage.CompletionTokens),
		TotalTokens:      int64(r.Usage.TotalTokens),
	}
}

// LogProbRecords returns every token record of the first choice.
func (r *ChatResponse) LogProbRecords() []llm.TokenLogProb {
	if len(r.Choices) == 0 || r.Choices[0].LogProbs == nil {
		return nil
	}
	out := make([]llm.TokenLogProb, 0, len(r.Choices[0].LogProbs.Content))
	for _, lp := range r.Choices[0].LogProbs.Content {
		out = append(out, llm.TokenLogProb{Token: lp.Token, LogProb: lp.LogProb})
	}
	return out
}
