// Package auth supplies bearer tokens for the Linear API and its asset host.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andywolf/issuelens/internal/cloud/gcp"
)

// ErrNoSession is returned when no usable access token is available.
var ErrNoSession = errors.New("no valid Linear session")

// TokenProvider returns a bearer token for the current session.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticProvider returns a fixed token, typically a personal API key.
type StaticProvider string

// Token implements TokenProvider.
func (s StaticProvider) Token(context.Context) (string, error) {
	token := strings.TrimSpace(string(s))
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// SecretProvider reads the token from GCP Secret Manager on every call.
type SecretProvider struct {
	fetcher gcp.SecretFetcher
	path    string
}

// NewSecretProvider creates a SecretProvider for the given secret path.
func NewSecretProvider(fetcher gcp.SecretFetcher, path string) *SecretProvider {
	return &SecretProvider{fetcher: fetcher, path: path}
}

// Token implements TokenProvider.
func (p *SecretProvider) Token(ctx context.Context) (string, error) {
	if p.fetcher == nil || p.path == "" {
		return "", ErrNoSession
	}

	value, err := p.fetcher.FetchSecret(ctx, p.path)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token secret %s: %w", p.path, err)
	}

	token := strings.TrimSpace(value)
	if token == "" {
		return "", ErrNoSession
	}
	return token, nil
}

// Chain tries each provider in order. A provider answering ErrNoSession
// passes to the next one; any other error stops the chain.
type Chain []TokenProvider

// Token implements TokenProvider.
func (c Chain) Token(ctx context.Context) (string, error) {
	for _, p := range c {
		token, err := p.Token(ctx)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrNoSession) {
			return "", err
		}
	}
	return "", ErrNoSession
}
