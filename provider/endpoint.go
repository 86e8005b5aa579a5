package provider

import (
	"fmt"
	"strings"

	"github.com/demml/potatohead-sub001/auth"
	"github.com/demml/potatohead-sub001/config"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/samber/lo"
)

// Canonical base URLs.
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	AnthropicBaseURL = "https://api.anthropic.com/v1"
	GeminiHost       = "https://generativelanguage.googleapis.com"

	DefaultGeminiAPIVersion = "v1beta"
	DefaultVertexAPIVersion = "v1beta1"
)

var googleAPIVersions = []string{"v1beta", "v1beta1", "v1"}

// endpoint composes request URLs for one client.
type endpoint struct {
	provider llm.Provider
	base     string
}

func newEndpoint(provider llm.Provider, creds *auth.Credentials, env *config.Env) (endpoint, error) {
	switch provider.Family() {
	case llm.ProviderOpenAI:
		return endpoint{provider: provider, base: override(env, config.OpenAIAPIURL, OpenAIBaseURL)}, nil
	case llm.ProviderAnthropic:
		return endpoint{provider: provider, base: override(env, config.AnthropicAPIURL, AnthropicBaseURL)}, nil
	case llm.ProviderGemini:
		return googleEndpoint(creds, env)
	default:
		return endpoint{}, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

func googleEndpoint(creds *auth.Credentials, env *config.Env) (endpoint, error) {
	oauth := creds.UsesOAuth()
	version := DefaultGeminiAPIVersion
	if oauth {
		version = DefaultVertexAPIVersion
	}
	if v, ok := env.Lookup(config.GoogleAPIVersion); ok {
		if !lo.Contains(googleAPIVersions, v) {
			return endpoint{}, llm.NewConstructionError(fmt.Sprintf("unsupported %s %q", config.GoogleAPIVersion, v), nil)
		}
		version = v
	}

	if !oauth {
		def := fmt.Sprintf("%s/%s/models", GeminiHost, version)
		return endpoint{provider: llm.ProviderGemini, base: override(env, config.GeminiAPIURL, def)}, nil
	}

	def := fmt.Sprintf("https://%s-aiplatform.googleapis.com/%s/projects/%s/locations/%s/publishers/google/models",
		creds.Location, version, creds.ProjectID, creds.Location)
	return endpoint{provider: llm.ProviderVertex, base: override(env, config.GeminiAPIURL, def)}, nil
}

// url returns the full URL for a service call. model is only used by the
// Google family, where it is part of the path.
func (e endpoint) url(service llm.ServiceType, model string) string {
	switch e.provider.Family() {
	case llm.ProviderOpenAI, llm.ProviderAnthropic:
		if service == llm.ServiceEmbed {
			return e.base + "/embeddings"
		}
		if e.provider == llm.ProviderAnthropic {
			return e.base + "/messages"
		}
		return e.base + "/chat/completions"
	default:
		action := "generateContent"
		if service == llm.ServiceEmbed {
			action = "embedContent"
			if e.provider == llm.ProviderVertex {
				action = "predict"
			}
		}
		return fmt.Sprintf("%s/%s:%s", e.base, model, action)
	}
}

func override(env *config.Env, key, def string) string {
	if v, ok := env.Lookup(key); ok {
		return strings.TrimRight(v, "/")
	}
	return def
}
