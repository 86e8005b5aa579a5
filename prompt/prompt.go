// Package prompt builds provider-tagged prompts and turns them into
// provider request bodies.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/samber/lo"
)

// Prompt is a provider-tagged request description.
type Prompt struct {
	Messages           []Message      `json:"messages"`
	SystemInstructions []Message      `json:"system_instructions,omitempty"`
	Model              string         `json:"model"`
	Provider           llm.Provider   `json:"provider"`
	Settings           ModelSettings  `json:"model_settings"`
	ResponseSchema     map[string]any `json:"response_json_schema,omitempty"`
	ResponseType       ResponseType   `json:"response_type"`
}

// Option configures a Prompt under construction.
type Option func(*builder)

type builder struct {
	model        string
	provider     llm.Provider
	systemText   []string
	system       []Message
	settings     ModelSettings
	schema       map[string]any
	responseType ResponseType
	err          error
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(b *builder) { b.model = model }
}

// WithProvider sets the provider. Without it the provider is taken from the
// first message.
func WithProvider(p llm.Provider) Option {
	return func(b *builder) { b.provider = p }
}

// WithSystemInstructions adds plain-text system instructions, converted to
// the provider's default system form.
func WithSystemInstructions(texts ...string) Option {
	return func(b *builder) { b.systemText = append(b.systemText, texts...) }
}

// WithSystemMessages adds already-built system instruction messages.
func WithSystemMessages(msgs ...Message) Option {
	return func(b *builder) { b.system = append(b.system, msgs...) }
}

// WithSettings sets provider-specific model settings.
func WithSettings(s ModelSettings) Option {
	return func(b *builder) { b.settings = s }
}

// WithResponseSchema requests structured output matching schema.
func WithResponseSchema(schema map[string]any) Option {
	return func(b *builder) {
		b.schema = schema
		b.responseType = ResponseTypeCustom
	}
}

// WithResponseFormat requests structured output matching the Go type of v.
func WithResponseFormat(v any) Option {
	return func(b *builder) {
		schema, err := SchemaFor(v)
		if err != nil {
			b.err = err
			return
		}
		b.schema = schema
		b.responseType = ResponseTypeCustom
	}
}

// WithResponseType selects a response type, matched case-insensitively.
// ResponseTypeScore attaches the Score schema.
func WithResponseType(rt ResponseType) Option {
	return func(b *builder) {
		parsed, err := ParseResponseType(string(rt))
		if err != nil {
			b.err = err
			return
		}
		b.responseType = parsed
		if parsed == ResponseTypeScore {
			b.schema = ScoreSchema()
		}
	}
}

// New builds and validates a prompt.
func New(messages []Message, opts ...Option) (*Prompt, error) {
	b := builder{responseType: ResponseTypeNull}
	for _, opt := range opts {
		opt(&b)
	}
	if errors.Is(b.err, ErrMessageParse) {
		return nil, b.err
	}
	if b.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMessageParse, b.err)
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("%w: at least one message is required", ErrMessageParse)
	}

	provider := b.provider
	if provider == "" || provider == llm.ProviderUndefined {
		provider = messages[0].Provider()
	}

	system := append([]Message(nil), b.system...)
	for _, text := range b.systemText {
		msg, err := SystemInstruction(provider, text)
		if err != nil {
			return nil, err
		}
		system = append(system, msg)
	}

	settings := b.settings
	if settings.IsUndefined() {
		settings = DefaultSettings(provider)
	}

	p := &Prompt{
		Messages:           append([]Message(nil), messages...),
		SystemInstructions: system,
		Model:              b.model,
		Provider:           provider,
		Settings:           settings,
		ResponseSchema:     b.schema,
		ResponseType:       b.responseType,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the construction invariants: non-empty messages, one
// provider family across messages and settings, and a model name.
func (p *Prompt) Validate() error {
	if len(p.Messages) == 0 {
		return fmt.Errorf("%w: at least one message is required", ErrMessageParse)
	}
	family := p.Provider.Family()
	if family == llm.ProviderUndefined {
		return ErrUndefinedProvider
	}
	for i, m := range p.Messages {
		if m.Kind() == "" {
			return fmt.Errorf("%w: message %d is empty", ErrMessageParse, i)
		}
		if m.Kind() == KindAnthropicSystem {
			return fmt.Errorf("%w: message %d is a system block", ErrMessageParse, i)
		}
		if m.Provider() != family {
			return fmt.Errorf("%w: message %d is %s, prompt is %s", ErrProviderMismatch, i, m.Provider(), p.Provider)
		}
	}
	for i, m := range p.SystemInstructions {
		if m.Provider() != family {
			return fmt.Errorf("%w: system instruction %d is %s, prompt is %s", ErrProviderMismatch, i, m.Provider(), p.Provider)
		}
	}
	if family == llm.ProviderGemini && len(p.SystemInstructions) > 1 {
		return ErrMoreThanOneSystemInstruction
	}
	if !p.Settings.IsUndefined() && p.Settings.Provider() != family {
		return fmt.Errorf("%w: settings are %s, prompt is %s", ErrProviderMismatch, p.Settings.Provider(), p.Provider)
	}
	if p.Model == "" {
		return ErrMissingModel
	}
	return nil
}

// Clone returns a copy whose message slices can be modified independently.
func (p *Prompt) Clone() *Prompt {
	cp := *p
	cp.Messages = append([]Message(nil), p.Messages...)
	cp.SystemInstructions = append([]Message(nil), p.SystemInstructions...)
	return &cp
}

// Bind returns a copy with ${name} replaced by value in every message and
// system instruction.
func (p *Prompt) Bind(name, value string) *Prompt {
	cp := p.Clone()
	cp.BindInPlace(name, value)
	return cp
}

// BindAll binds every entry of values.
func (p *Prompt) BindAll(values map[string]string) *Prompt {
	cp := p.Clone()
	for name, value := range values {
		cp.BindInPlace(name, value)
	}
	return cp
}

// BindInPlace replaces ${name} with value in the prompt itself.
func (p *Prompt) BindInPlace(name, value string) {
	for i := range p.Messages {
		p.Messages[i] = p.Messages[i].Bind(name, value)
	}
	for i := range p.SystemInstructions {
		p.SystemInstructions[i] = p.SystemInstructions[i].Bind(name, value)
	}
}

// ExtractVariables returns the sorted set of ${name} identifiers across
// messages and system instructions.
func (p *Prompt) ExtractVariables() []string {
	lists := lo.Map(append(append([]Message(nil), p.SystemInstructions...), p.Messages...),
		func(m Message, _ int) []string { return m.Variables() })
	return llm.SortedUnique(lists...)
}

// ModelIdentifier returns "provider:model".
func (p *Prompt) ModelIdentifier() string {
	return p.Provider.String() + ":" + p.Model
}

// HasStructuredOutput reports whether a response schema is attached.
func (p *Prompt) HasStructuredOutput() bool {
	return p.ResponseSchema != nil
}

// WithPrependedMessages returns a copy with msgs placed before the
// existing messages.
func (p *Prompt) WithPrependedMessages(msgs ...Message) *Prompt {
	cp := p.Clone()
	cp.Messages = append(append([]Message(nil), msgs...), p.Messages...)
	return cp
}

// WithPrependedSystemInstructions returns a copy with msgs placed before
// the existing system instructions.
func (p *Prompt) WithPrependedSystemInstructions(msgs ...Message) *Prompt {
	cp := p.Clone()
	cp.SystemInstructions = append(append([]Message(nil), msgs...), p.SystemInstructions...)
	return cp
}

// UnmarshalJSON decodes and validates a prompt.
func (p *Prompt) UnmarshalJSON(data []byte) error {
	type alias Prompt
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.ResponseType == "" {
		raw.ResponseType = ResponseTypeNull
	}
	if raw.ResponseType == ResponseTypeScore && raw.ResponseSchema == nil {
		raw.ResponseSchema = ScoreSchema()
	}
	*p = Prompt(raw)
	if p.Settings.IsUndefined() {
		p.Settings = DefaultSettings(p.Provider)
	}
	return p.Validate()
}

// Save writes the prompt as JSON to path.
func (p *Prompt) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal prompt: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prompt: %w", err)
	}
	return nil
}

// Load reads a prompt saved with Save.
func Load(path string) (*Prompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt: %w", err)
	}
	var p Prompt
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse prompt: %w", err)
	}
	return &p, nil
}
