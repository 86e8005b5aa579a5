package gemini

import "github.com/demml/potatohead-sub001/llm"

// UsageMetadata is token accounting for a generateContent call.
type UsageMetadata struct {
	PromptTokenCount        int64  `json:"promptTokenCount"`
	CandidatesTokenCount    int64  `json:"candidatesTokenCount"`
	ToolUsePromptTokenCount int64  `json:"toolUsePromptTokenCount,omitempty"`
	ThoughtsTokenCount      int64  `json:"thoughtsTokenCount,omitempty"`
	TotalTokenCount         int64  `json:"totalTokenCount"`
	CachedContentTokenCount int64  `json:"cachedContentTokenCount,omitempty"`
	TrafficType             string `json:"trafficType,omitempty"`
}

// LogProbsCandidate is one token with its log probability.
type LogProbsCandidate struct {
	Token          string  `json:"token"`
	TokenID        int     `json:"tokenId"`
	LogProbability float64 `json:"logProbability"`
}

// TopCandidates are the alternatives at one decoding step.
type TopCandidates struct {
	Candidates []LogProbsCandidate `json:"candidates,omitempty"`
}

// LogProbsResult holds per-step log probabilities.
type LogProbsResult struct {
	TopCandidates    []TopCandidates     `json:"topCandidates,omitempty"`
	ChosenCandidates []LogProbsCandidate `json:"chosenCandidates,omitempty"`
}

// SafetyRating rates a candidate against a harm category.
type SafetyRating struct {
	Category         string  `json:"category"`
	Probability      string  `json:"probability,omitempty"`
	ProbabilityScore float32 `json:"probabilityScore,omitempty"`
	Severity         string  `json:"severity,omitempty"`
	SeverityScore    float32 `json:"severityScore,omitempty"`
	Blocked          bool    `json:"blocked,omitempty"`
}

// Citation is a source attribution.
type Citation struct {
	StartIndex int    `json:"startIndex,omitempty"`
	EndIndex   int    `json:"endIndex,omitempty"`
	URI        string `json:"uri,omitempty"`
	Title      string `json:"title,omitempty"`
	License    string `json:"license,omitempty"`
}

// CitationMetadata groups the citations of a candidate.
type CitationMetadata struct {
	Citations []Citation `json:"citations,omitempty"`
}

// Candidate is one generated response.
type Candidate struct {
	Index             int               `json:"index"`
	Content           Content           `json:"content"`
	AvgLogProbs       *float64          `json:"avgLogprobs,omitempty"`
	LogProbsResult    *LogProbsResult   `json:"logprobsResult,omitempty"`
	FinishReason      string            `json:"finishReason,omitempty"`
	SafetyRatings     []SafetyRating    `json:"safetyRatings,omitempty"`
	CitationMetadata  *CitationMetadata `json:"citationMetadata,omitempty"`
	GroundingMetadata map[string]any    `json:"groundingMetadata,omitempty"`
	FinishMessage     string            `json:"finishMessage,omitempty"`
}

// PromptFeedback reports prompt-level blocking.
type PromptFeedback struct {
	BlockReason        string         `json:"blockReason,omitempty"`
	SafetyRatings      []SafetyRating `json:"safetyRatings,omitempty"`
	BlockReasonMessage string         `json:"blockReasonMessage,omitempty"`
}

// GenerateContentResponse is the body returned by :generateContent. Vertex
// returns the same shape.
type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	CreateTime     string          `json:"createTime,omitempty"`
	ResponseID     string          `json:"responseId,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
}

// IsEmpty reports whether no candidates were returned.
func (r *GenerateContentResponse) IsEmpty() bool {
	return len(r.Candidates) == 0
}

// Content returns the text of the first candidate.
func (r *GenerateContentResponse) Content() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Text()
}

// FunctionCalls returns the function calls of the first candidate.
func (r *GenerateContentResponse) FunctionCalls() []FunctionCall {
	if len(r.Candidates) == 0 {
		return nil
	}
	var calls []FunctionCall
	for _, p := range r.Candidates[0].Content.Parts {
		if p.FunctionCall != nil {
			calls = append(calls, *p.FunctionCall)
		}
	}
	return calls
}

// TokenUsage projects usageMetadata.
func (r *GenerateContentResponse) TokenUsage() llm.Usage {
	if r.UsageMetadata == nil {
		return llm.Usage{}
	}
	return llm.Usage{
		PromptTokens:     r.UsageMetadata.PromptTokenCount,
		CompletionTokens: r.UsageMetadata.CandidatesTokenCount,
		TotalTokens:      r.UsageMetadata.TotalTokenCount,
	}
}

// LogProbRecords returns the chosen tokens of the first candidate.
func (r *GenerateContentResponse) LogProbRecords() []llm.TokenLogProb {
	if len(r.Candidates) == 0 || r.Candidates[0].LogProbsResult == nil {
		return nil
	}
	chosen := r.Candidates[0].LogProbsResult.ChosenCandidates
	out := make([]llm.TokenLogProb, 0, len(chosen))
	for _, c := range chosen {
		out = append(out, llm.TokenLogProb{Token: c.Token, LogProb: c.LogProbability})
	}
	return out
}
