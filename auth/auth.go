// Package auth resolves provider credentials from the environment and turns
// them into request headers.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/demml/potatohead-sub001/config"
	"github.com/demml/potatohead-sub001/llm"
	"github.com/demml/potatohead-sub001/llm/anthropic"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
)

var (
	// ErrMissingAuthentication is returned when a request is attempted
	// without any credential for the provider.
	ErrMissingAuthentication = errors.New("missing authentication")
	// ErrNoProjectID is returned when OAuth is used without a Google Cloud
	// project.
	ErrNoProjectID = errors.New("GOOGLE_CLOUD_PROJECT is required for Vertex AI")
)

// Header names.
const (
	HeaderAuthorization    = "Authorization"
	HeaderAPIKey           = "x-api-key"
	HeaderAnthropicVersion = "anthropic-version"
	HeaderGoogleAPIKey     = "x-goog-api-key"
)

// Google OAuth scopes.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/cloud-platform",
	"https://www.googleapis.com/auth/generative-language",
}

// Kind tells how a provider authenticates.
type Kind int

const (
	KindNotSet Kind = iota
	KindAPIKey
	KindOAuth
)

func (k Kind) String() string {
	switch k {
	case KindAPIKey:
		return "api_key"
	case KindOAuth:
		return "oauth"
	default:
		return "not_set"
	}
}

// Credentials hold the resolved authentication for one provider.
type Credentials struct {
	Provider llm.Provider
	Kind     Kind

	// Set for Google OAuth only.
	ProjectID string
	Location  string

	apiKey string
	tokens TokenProvider
}

// APIKey builds key-based credentials.
func APIKey(provider llm.Provider, key string) *Credentials {
	return &Credentials{Provider: provider, Kind: KindAPIKey, apiKey: key}
}

// OAuth builds token-based Google credentials.
func OAuth(tokens TokenProvider, projectID, location string) *Credentials {
	return &Credentials{
		Provider:  llm.ProviderVertex,
		Kind:      KindOAuth,
		ProjectID: projectID,
		Location:  location,
		tokens:    tokens,
	}
}

// NotSet builds empty credentials. Every Headers call fails.
func NotSet(provider llm.Provider) *Credentials {
	return &Credentials{Provider: provider, Kind: KindNotSet}
}

// IsSet reports whether a credential was found.
func (c *Credentials) IsSet() bool {
	return c != nil && c.Kind != KindNotSet
}

// UsesOAuth reports whether requests go to Vertex AI with bearer tokens.
func (c *Credentials) UsesOAuth() bool {
	return c != nil && c.Kind == KindOAuth
}

// Headers returns the authentication headers for one request. OAuth tokens
// are fetched from the token provider on every call.
func (c *Credentials) Headers(ctx context.Context) (map[string]string, error) {
	if !c.IsSet() {
		provider := llm.ProviderUndefined
		if c != nil {
			provider = c.Provider
		}
		return nil, llm.NewAuthError(fmt.Sprintf("no credentials for %s", provider), ErrMissingAuthentication)
	}

	if c.Kind == KindOAuth {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, llm.NewAuthError("failed to acquire bearer token", err)
		}
		return map[string]string{HeaderAuthorization: token}, nil
	}

	switch c.Provider.Family() {
	case llm.ProviderOpenAI:
		return map[string]string{HeaderAuthorization: "Bearer " + c.apiKey}, nil
	case llm.ProviderAnthropic:
		return map[string]string{
			HeaderAPIKey:           c.apiKey,
			HeaderAnthropicVersion: anthropic.Version,
		}, nil
	case llm.ProviderGemini:
		return map[string]string{HeaderGoogleAPIKey: c.apiKey}, nil
	default:
		return nil, llm.NewAuthError(fmt.Sprintf("unsupported provider %s", c.Provider), ErrMissingAuthentication)
	}
}

// Resolver selects credentials from an environment view.
type Resolver struct {
	env    *config.Env
	logger zerolog.Logger
}

// NewResolver creates a resolver over env.
func NewResolver(env *config.Env, logger zerolog.Logger) *Resolver {
	return &Resolver{
		env:    env,
		logger: logger.With().Str("component", "auth").Logger(),
	}
}

// Resolve returns the credentials for provider. A missing credential is not
// an error here; it surfaces on the first request. A Google OAuth credential
// without a project is an error.
func (r *Resolver) Resolve(ctx context.Context, provider llm.Provider) (*Credentials, error) {
	switch provider.Family() {
	case llm.ProviderOpenAI:
		return r.keyed(provider, config.OpenAIAPIKey), nil
	case llm.ProviderAnthropic:
		return r.keyed(provider, config.AnthropicAPIKey), nil
	case llm.ProviderGemini:
		return r.google(ctx, provider)
	default:
		return NotSet(provider), nil
	}
}

func (r *Resolver) keyed(provider llm.Provider, keys ...string) *Credentials {
	if key, ok := r.env.First(keys...); ok {
		r.logger.Debug().Str("provider", provider.String()).Msg("Using API key authentication")
		return APIKey(provider, key)
	}
	r.logger.Debug().Str("provider", provider.String()).Msg("No credentials found")
	return NotSet(provider)
}

func (r *Resolver) google(ctx context.Context, provider llm.Provider) (*Credentials, error) {
	if provider != llm.ProviderVertex {
		if key, ok := r.env.First(config.GeminiAPIKey, config.GoogleAPIKey); ok {
			r.logger.Debug().Str("provider", provider.String()).Msg("Using API key authentication")
			return APIKey(llm.ProviderGemini, key), nil
		}
	}

	creds, err := r.googleCredentials(ctx)
	if err != nil {
		r.logger.Debug().Err(err).Msg("No Google credentials found")
		return NotSet(provider), nil
	}

	projectID, ok := r.env.Lookup(config.GoogleCloudProject)
	if !ok {
		projectID = creds.ProjectID
	}
	if projectID == "" {
		return nil, llm.NewConstructionError("vertex credentials", ErrNoProjectID)
	}

	location := r.env.Get(config.GoogleCloudLocation)
	r.logger.Debug().
		Str("project", projectID).
		Str("location", location).
		Msg("Using Google OAuth authentication")
	return OAuth(NewTokenProvider(creds.TokenSource), projectID, location), nil
}

func (r *Resolver) googleCredentials(ctx context.Context) (*google.Credentials, error) {
	// token sources outlive the call that creates them
	ctx = context.WithoutCancel(ctx)

	if encoded, ok := r.env.Lookup(config.GoogleAccountJSONBase64); ok {
		data, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", config.GoogleAccountJSONBase64, err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, GoogleScopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
		}
		return creds, nil
	}

	creds, err := google.FindDefaultCredentials(ctx, GoogleScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}
	return creds, nil
}
