package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"
)

// TokenRefreshBuffer is the time before token expiration when a refresh should be triggered.
const TokenRefreshBuffer = 5 * time.Minute

// Manager serves the OAuth access token kept in a Store, refreshing it
// through the OAuth token endpoint when it is about to expire.
type Manager struct {
	mu sync.RWMutex

	store  Store
	oauth  *oauth2.Config
	token  *oauth2.Token
	loaded bool

	// For testing: allow time to be mocked
	nowFunc func() time.Time
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNowFunc sets a custom time function for testing.
func WithNowFunc(fn func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = fn
	}
}

// WithOAuthConfig enables refresh-token exchanges against cfg's token endpoint.
func WithOAuthConfig(cfg *oauth2.Config) ManagerOption {
	return func(m *Manager) {
		m.oauth = cfg
	}
}

// NewManager creates a Manager backed by store.
func NewManager(store Store, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("token store cannot be nil")
	}

	m := &Manager{
		store:   store,
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Token returns a valid access token, refreshing if necessary.
func (m *Manager) Token(ctx context.Context) (string, error) {
	m.mu.RLock()
	if m.loaded && m.isValidLocked() {
		token := m.token.AccessToken
		m.mu.RUnlock()
		return token, nil
	}
	m.mu.RUnlock()

	return m.Refresh(ctx)
}

// Refresh reloads the stored token and, if it is expired or about to
// expire, exchanges its refresh token for a new one and persists it.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, err := m.store.Load()
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	m.loaded = true
	m.token = stored
	if stored == nil {
		return "", ErrNoSession
	}
	if stored.Expiry.IsZero() {
		stored.Expiry = jwtExpiry(stored.AccessToken)
	}

	if m.isValidLocked() {
		return stored.AccessToken, nil
	}

	if m.oauth == nil || stored.RefreshToken == "" {
		return "", fmt.Errorf("%w: access token expired at %s", ErrNoSession, stored.Expiry.Format(time.RFC3339))
	}

	// An empty access token forces the token source to hit the endpoint.
	fresh, err := m.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: stored.RefreshToken}).Token()
	if err != nil {
		return "", fmt.Errorf("%w: failed to refresh token: %v", ErrNoSession, err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = stored.RefreshToken
	}

	if err := m.store.Save(fresh); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	m.token = fresh

	return fresh.AccessToken, nil
}

// NeedsRefresh returns true if the token is missing, expired, or will expire soon.
func (m *Manager) NeedsRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.loaded || !m.isValidLocked()
}

// ExpiresAt returns the expiration time of the current token.
// Returns zero time if no token has been loaded or it never expires.
func (m *Manager) ExpiresAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil {
		return time.Time{}
	}
	return m.token.Expiry
}

// isValidLocked checks if the current token is valid (must hold at least RLock).
// Tokens without an expiry, such as personal API keys, never expire.
func (m *Manager) isValidLocked() bool {
	if m.token == nil || m.token.AccessToken == "" {
		return false
	}
	if m.token.Expiry.IsZero() {
		return true
	}
	return m.token.Expiry.After(m.nowFunc().Add(TokenRefreshBuffer))
}

// jwtExpiry reads the exp claim of a JWT access token without verifying it.
// Returns zero time for opaque tokens.
func jwtExpiry(accessToken string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
