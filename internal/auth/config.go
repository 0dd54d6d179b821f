package auth

import (
	"fmt"

	"golang.org/x/oauth2"

	"github.com/andywolf/issuelens/internal/cloud/gcp"
	"github.com/andywolf/issuelens/internal/config"
)

// FromConfig builds the provider chain: static token, then Secret Manager
// (when a fetcher and secret path are configured), then the token file.
func FromConfig(cfg config.AuthConfig, secrets gcp.SecretFetcher) (TokenProvider, error) {
	var chain Chain

	if cfg.AccessToken != "" {
		chain = append(chain, StaticProvider(cfg.AccessToken))
	}

	if cfg.SecretPath != "" && secrets != nil {
		chain = append(chain, NewSecretProvider(secrets, cfg.SecretPath))
	}

	if cfg.TokenFile != "" {
		manager, err := ManagerFromConfig(cfg)
		if err != nil {
			return nil, err
		}
		chain = append(chain, manager)
	}

	return chain, nil
}

// ManagerFromConfig creates the Manager for cfg's token file. Refresh is
// enabled when an OAuth client ID is configured.
func ManagerFromConfig(cfg config.AuthConfig, opts ...ManagerOption) (*Manager, error) {
	if cfg.ClientID != "" {
		opts = append(opts, WithOAuthConfig(&oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
		}))
	}
	manager, err := NewManager(NewFileStore(cfg.TokenFile), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create token manager: %w", err)
	}
	return manager, nil
}
