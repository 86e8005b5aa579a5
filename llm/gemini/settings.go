package gemini

// ThinkingConfig controls model reasoning.
type ThinkingConfig struct {
	IncludeThoughts *bool  `json:"includeThoughts,omitempty" yaml:"include_thoughts,omitempty"`
	ThinkingBudget  *int   `json:"thinkingBudget,omitempty" yaml:"thinking_budget,omitempty"`
	ThinkingLevel   string `json:"thinkingLevel,omitempty" yaml:"thinking_level,omitempty"`
}

// GenerationConfig holds sampling and output controls.
type GenerationConfig struct {
	StopSequences      []string        `json:"stopSequences,omitempty" yaml:"stop_sequences,omitempty"`
	ResponseMimeType   string          `json:"responseMimeType,omitempty" yaml:"response_mime_type,omitempty"`
	ResponseJSONSchema map[string]any  `json:"responseJsonSchema,omitempty" yaml:"response_json_schema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty" yaml:"response_modalities,omitempty"`
	CandidateCount     *int            `json:"candidateCount,omitempty" yaml:"candidate_count,omitempty"`
	MaxOutputTokens    *int            `json:"maxOutputTokens,omitempty" yaml:"max_output_tokens,omitempty"`
	Temperature        *float32        `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	TopP               *float32        `json:"topP,omitempty" yaml:"top_p,omitempty"`
	TopK               *int            `json:"topK,omitempty" yaml:"top_k,omitempty"`
	PresencePenalty    *float32        `json:"presencePenalty,omitempty" yaml:"presence_penalty,omitempty"`
	FrequencyPenalty   *float32        `json:"frequencyPenalty,omitempty" yaml:"frequency_penalty,omitempty"`
	Seed               *int            `json:"seed,omitempty" yaml:"seed,omitempty"`
	ResponseLogProbs   *bool           `json:"responseLogprobs,omitempty" yaml:"response_logprobs,omitempty"`
	LogProbs           *int            `json:"logprobs,omitempty" yaml:"logprobs,omitempty"`
	ThinkingConfig     *ThinkingConfig `json:"thinkingConfig,omitempty" yaml:"thinking_config,omitempty"`
	MediaResolution    string          `json:"mediaResolution,omitempty" yaml:"media_resolution,omitempty"`
}

// SafetySetting blocks a harm category above a threshold.
type SafetySetting struct {
	Category  string `json:"category" yaml:"category"`
	Threshold string `json:"threshold" yaml:"threshold"`
	Method    string `json:"method,omitempty" yaml:"method,omitempty"`
}

// ModelArmorConfig names Model Armor templates for prompt and response screening.
type ModelArmorConfig struct {
	PromptTemplateName   string `json:"promptTemplateName,omitempty" yaml:"prompt_template_name,omitempty"`
	ResponseTemplateName string `json:"responseTemplateName,omitempty" yaml:"response_template_name,omitempty"`
}

// FunctionCallingConfig restricts how the model calls functions.
type FunctionCallingConfig struct {
	Mode                 string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowedFunctionNames []string `json:"allowedFunctionNames,omitempty" yaml:"allowed_function_names,omitempty"`
}

// ToolConfig is shared by all tools in the request.
type ToolConfig struct {
	FunctionCallingConfig *FunctionCallingConfig `json:"functionCallingConfig,omitempty" yaml:"function_calling_config,omitempty"`
}

// FunctionDeclaration describes a callable function.
type FunctionDeclaration struct {
	Name                 string         `json:"name" yaml:"name"`
	Description          string         `json:"description,omitempty" yaml:"description,omitempty"`
	ParametersJSONSchema map[string]any `json:"parametersJsonSchema,omitempty" yaml:"parameters_json_schema,omitempty"`
	ResponseJSONSchema   map[string]any `json:"responseJsonSchema,omitempty" yaml:"response_json_schema,omitempty"`
}

// Tool is a capability offered to the model. Built-in tools are passed as
// opaque objects.
type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations,omitempty" yaml:"function_declarations,omitempty"`
	GoogleSearch         map[string]any        `json:"googleSearch,omitempty" yaml:"google_search,omitempty"`
	CodeExecution        map[string]any        `json:"codeExecution,omitempty" yaml:"code_execution,omitempty"`
	URLContext           map[string]any        `json:"urlContext,omitempty" yaml:"url_context,omitempty"`
}

// Settings holds the request-level knobs. They flatten into the request body.
type Settings struct {
	Labels           map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	ToolConfig       *ToolConfig       `json:"toolConfig,omitempty" yaml:"tool_config,omitempty"`
	SafetySettings   []SafetySetting   `json:"safetySettings,omitempty" yaml:"safety_settings,omitempty"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty" yaml:"generation_config,omitempty"`
	ModelArmorConfig *ModelArmorConfig `json:"modelArmorConfig,omitempty" yaml:"model_armor_config,omitempty"`
	CachedContent    string            `json:"cachedContent,omitempty" yaml:"cached_content,omitempty"`
	Tools            []Tool            `json:"tools,omitempty" yaml:"tools,omitempty"`
	ExtraBody        map[string]any    `json:"extra_body,omitempty" yaml:"extra_body,omitempty"`
}

// DefaultSettings returns the settings used when a prompt names none.
func DefaultSettings() Settings {
	return Settings{}
}

// WithStructuredOutput returns a copy configured to return JSON matching schema.
func (s Settings) WithStructuredOutput(schema map[string]any) Settings {
	var cfg GenerationConfig
	if s.GenerationConfig != nil {
		cfg = *s.GenerationConfig
	}
	cfg.ResponseMimeType = "application/json"
	cfg.ResponseJSONSchema = schema
	s.GenerationConfig = &cfg
	return s
}
