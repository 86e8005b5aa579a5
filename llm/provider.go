package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Provider identifies an LLM back-end family.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderVertex    Provider = "vertex"
	ProviderGoogle    Provider = "google"
	ProviderAnthropic Provider = "anthropic"
	ProviderUndefined Provider = "undefined"
)

// Providers lists every concrete provider in a stable order.
var Providers = []Provider{
	ProviderOpenAI,
	ProviderGemini,
	ProviderVertex,
	ProviderGoogle,
	ProviderAnthropic,
}

// ParseProvider converts a case-insensitive provider name into a Provider.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return ProviderOpenAI, nil
	case "gemini":
		return ProviderGemini, nil
	case "vertex":
		return ProviderVertex, nil
	case "google":
		return ProviderGoogle, nil
	case "anthropic":
		return ProviderAnthropic, nil
	case "undefined", "":
		return ProviderUndefined, nil
	default:
		return ProviderUndefined, fmt.Errorf("unknown provider: %s", s)
	}
}

// String returns the provider name.
func (p Provider) String() string {
	if p == "" {
		return string(ProviderUndefined)
	}
	return string(p)
}

// IsGoogle reports whether the provider belongs to the Gemini/Vertex family.
func (p Provider) IsGoogle() bool {
	return p == ProviderGemini || p == ProviderVertex || p == ProviderGoogle
}

// Family collapses Gemini, Vertex and Google into a single family value.
// Other providers are returned unchanged.
func (p Provider) Family() Provider {
	if p.IsGoogle() {
		return ProviderGemini
	}
	if p == "" {
		return ProviderUndefined
	}
	return p
}

// UnmarshalJSON accepts any case of the provider name.
func (p *Provider) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseProvider(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// UnmarshalYAML accepts any case of the provider name.
func (p *Provider) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseProvider(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ServiceType selects between the generate and embed endpoints of a provider.
type ServiceType int

const (
	ServiceGenerate ServiceType = iota
	ServiceEmbed
)

func (s ServiceType) String() string {
	if s == ServiceEmbed {
		return "embed"
	}
	return "generate"
}
