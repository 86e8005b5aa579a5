package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// TokenProvider mints authorization header values. The returned value
// already carries its scheme prefix, e.g. "Bearer ya29...".
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// GoogleTokenProvider wraps an oauth2 token source. Tokens are cached until
// they expire.
type GoogleTokenProvider struct {
	src oauth2.TokenSource
}

// NewTokenProvider wraps src with expiry-based caching.
func NewTokenProvider(src oauth2.TokenSource) *GoogleTokenProvider {
	return &GoogleTokenProvider{src: oauth2.ReuseTokenSource(nil, src)}
}

// Token returns "<type> <access token>".
func (p *GoogleTokenProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.src.Token()
	if err != nil {
		return "", fmt.Errorf("token source: %w", err)
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}
