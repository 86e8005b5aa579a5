package prompt

import (
	"encoding/json"
	"fmt"

	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/anthropic"
	"github.com/demml/potatohead-sub001/llm/gemini"
	"github.com/demml/potatohead-sub001/llm/openai"
	"gopkg.in/yaml.v3"
)

// ModelSettings is a provider-tagged settings union. The zero value has no
// family and is replaced by the prompt provider's defaults.
type ModelSettings struct {
	openAI    *openai.ChatSettings
	gemini    *gemini.Settings
	anthropic *anthropic.Settings
}

// OpenAISettings wraps OpenAI chat settings.
func OpenAISettings(s openai.ChatSettings) ModelSettings {
	return ModelSettings{openAI: &s}
}

// GeminiSettings wraps Gemini settings. They serve Vertex and Google too.
func GeminiSettings(s gemini.Settings) ModelSettings {
	return ModelSettings{gemini: &s}
}

// AnthropicSettings wraps Anthropic settings.
func AnthropicSettings(s anthropic.Settings) ModelSettings {
	return ModelSettings{anthropic: &s}
}

// DefaultSettings returns the default settings of a provider family.
func DefaultSettings(p llm.Provider) ModelSettings {
	switch p.Family() {
	case llm.ProviderOpenAI:
		return OpenAISettings(openai.DefaultChatSettings())
	case llm.ProviderGemini:
		return GeminiSettings(gemini.DefaultSettings())
	case llm.ProviderAnthropic:
		return AnthropicSettings(anthropic.DefaultSettings())
	default:
		return ModelSettings{}
	}
}

// Provider returns the settings family, or ProviderUndefined.
func (s ModelSettings) Provider() llm.Provider {
	switch {
	case s.openAI != nil:
		return llm.ProviderOpenAI
	case s.gemini != nil:
		return llm.ProviderGemini
	case s.anthropic != nil:
		return llm.ProviderAnthropic
	default:
		return llm.ProviderUndefined
	}
}

// IsUndefined reports whether no family is set.
func (s ModelSettings) IsUndefined() bool {
	return s.Provider() == llm.ProviderUndefined
}

// ExtraBody returns the caller-supplied extra body, if any.
func (s ModelSettings) ExtraBody() map[string]any {
	switch {
	case s.openAI != nil:
		return s.openAI.ExtraBody
	case s.gemini != nil:
		return s.gemini.ExtraBody
	case s.anthropic != nil:
		return s.anthropic.ExtraBody
	default:
		return nil
	}
}

// OpenAI returns the OpenAI variant.
func (s ModelSettings) OpenAI() (openai.ChatSettings, bool) {
	if s.openAI == nil {
		return openai.ChatSettings{}, false
	}
	return *s.openAI, true
}

// Gemini returns the Gemini variant.
func (s ModelSettings) Gemini() (gemini.Settings, bool) {
	if s.gemini == nil {
		return gemini.Settings{}, false
	}
	return *s.gemini, true
}

// Anthropic returns the Anthropic variant.
func (s ModelSettings) Anthropic() (anthropic.Settings, bool) {
	if s.anthropic == nil {
		return anthropic.Settings{}, false
	}
	return *s.anthropic, true
}

type settingsJSON struct {
	Provider llm.Provider    `json:"provider"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// MarshalJSON encodes settings as {"provider": ..., "settings": ...}.
func (s ModelSettings) MarshalJSON() ([]byte, error) {
	var (
		inner []byte
		err   error
	)
	switch {
	case s.openAI != nil:
		inner, err = json.Marshal(s.openAI)
	case s.gemini != nil:
		inner, err = json.Marshal(s.gemini)
	case s.anthropic != nil:
		inner, err = json.Marshal(s.anthropic)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(settingsJSON{Provider: s.Provider(), Settings: inner})
}

// UnmarshalJSON decodes tagged settings.
func (s *ModelSettings) UnmarshalJSON(data []byte) error {
	var raw settingsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ModelSettings{}
	if len(raw.Settings) == 0 {
		return nil
	}
	switch raw.Provider.Family() {
	case llm.ProviderOpenAI:
		var v openai.ChatSettings
		if err := json.Unmarshal(raw.Settings, &v); err != nil {
			return err
		}
		s.openAI = &v
	case llm.ProviderGemini:
		var v gemini.Settings
		if err := json.Unmarshal(raw.Settings, &v); err != nil {
			return err
		}
		s.gemini = &v
	case llm.ProviderAnthropic:
		var v anthropic.Settings
		if err := json.Unmarshal(raw.Settings, &v); err != nil {
			return err
		}
		s.anthropic = &v
	}
	return nil
}

// UnmarshalYAML decodes settings from a run file. The settings mapping is
// interpreted according to the sibling provider key.
func (s *ModelSettings) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Provider llm.Provider `yaml:"provider"`
		Settings yaml.Node    `yaml:"settings"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*s = ModelSettings{}
	if raw.Settings.Kind == 0 {
		return nil
	}
	switch raw.Provider.Family() {
	case llm.ProviderOpenAI:
		var v openai.ChatSettings
		if err := raw.Settings.Decode(&v); err != nil {
			return err
		}
		s.openAI = &v
	case llm.ProviderGemini:
		var v gemini.Settings
		if err := raw.Settings.Decode(&v); err != nil {
			return err
		}
		s.gemini = &v
	case llm.ProviderAnthropic:
		var v anthropic.Settings
		if err := raw.Settings.Decode(&v); err != nil {
			return err
		}
		s.anthropic = &v
	default:
		return fmt.Errorf("%w: settings need a provider", ErrUndefinedProvider)
	}
	return nil
}
