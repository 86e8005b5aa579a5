package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Environment variable names recognized by the provider clients.
const (
	OpenAIAPIKey            = "OPENAI_API_KEY"
	OpenAIAPIURL            = "OPENAI_API_URL"
	AnthropicAPIKey         = "ANTHROPIC_API_KEY"
	AnthropicAPIURL         = "ANTHROPIC_API_URL"
	GeminiAPIKey            = "GEMINI_API_KEY"
	GoogleAPIKey            = "GOOGLE_API_KEY"
	GeminiAPIURL            = "GEMINI_API_URL"
	GoogleAPIVersion        = "GOOGLE_API_VERSION"
	GoogleCloudProject      = "GOOGLE_CLOUD_PROJECT"
	GoogleCloudLocation     = "GOOGLE_CLOUD_LOCATION"
	GoogleAccountJSONBase64 = "GOOGLE_ACCOUNT_JSON_BASE64"
	GoogleAppCredentials    = "GOOGLE_APPLICATION_CREDENTIALS"
	LogLevel                = "LOG_LEVEL"
)

// DefaultGoogleCloudLocation is used when GOOGLE_CLOUD_LOCATION is unset.
const DefaultGoogleCloudLocation = "us-central1"

// Env is a read-only view of the process environment with defaults applied.
// Take a new view with LoadEnv whenever the environment should be re-read.
type Env struct {
	v *viper.Viper
}

// LoadEnv builds an environment view.
func LoadEnv() *Env {
	v := viper.New()
	v.SetDefault(GoogleCloudLocation, DefaultGoogleCloudLocation)
	v.AutomaticEnv()
	return &Env{v: v}
}

// NewEnv builds a view backed by fixed values instead of the process
// environment. Defaults still apply.
func NewEnv(values map[string]string) *Env {
	v := viper.New()
	v.SetDefault(GoogleCloudLocation, DefaultGoogleCloudLocation)
	for k, val := range values {
		v.Set(k, val)
	}
	return &Env{v: v}
}

// Get returns the value of key, or "" if unset.
func (e *Env) Get(key string) string {
	return strings.TrimSpace(e.v.GetString(key))
}

// Lookup returns the value of key and whether it is set to a non-empty value.
func (e *Env) Lookup(key string) (string, bool) {
	val := e.Get(key)
	return val, val != ""
}

// First returns the first non-empty value among keys.
func (e *Env) First(keys ...string) (string, bool) {
	for _, k := range keys {
		if val, ok := e.Lookup(k); ok {
			return val, true
		}
	}
	return "", false
}
