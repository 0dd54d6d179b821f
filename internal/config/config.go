package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Localization failure policies
const (
	PolicyFailFast   = "fail-fast"
	PolicyBestEffort = "best-effort"
)

// Config represents the full issuelens configuration
type Config struct {
	Linear   LinearConfig   `mapstructure:"linear"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Localize LocalizeConfig `mapstructure:"localize"`
	Render   RenderConfig   `mapstructure:"render"`
	Log      LogConfig      `mapstructure:"log"`
}

// LinearConfig contains API endpoints
type LinearConfig struct {
	APIURL      string `mapstructure:"api_url"`
	AssetPrefix string `mapstructure:"asset_prefix"` // authenticated upload host
	RateLimit   int    `mapstructure:"rate_limit"`   // requests per minute and host, 0 disables
}

// AuthConfig contains token sources, tried in field order
type AuthConfig struct {
	AccessToken  string `mapstructure:"access_token"`
	SecretPath   string `mapstructure:"secret_path"` // GCP Secret Manager
	TokenFile    string `mapstructure:"token_file"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	TokenURL     string `mapstructure:"token_url"`
}

// LocalizeConfig contains image localization settings
type LocalizeConfig struct {
	CacheDir    string `mapstructure:"cache_dir"`
	Extension   string `mapstructure:"extension"`
	Policy      string `mapstructure:"policy"`
	Concurrency int    `mapstructure:"concurrency"`
	Timeout     string `mapstructure:"timeout"`
}

// RenderConfig contains terminal rendering settings
type RenderConfig struct {
	WordWrap int    `mapstructure:"word_wrap"`
	Style    string `mapstructure:"style"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Format       string `mapstructure:"format"` // text or json
	CloudProject string `mapstructure:"cloud_project"`
}

// Load loads configuration from file and environment
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Linear.APIURL == "" {
		cfg.Linear.APIURL = "https://api.linear.app/graphql"
	}

	if cfg.Linear.AssetPrefix == "" {
		cfg.Linear.AssetPrefix = "https://uploads.linear.app/"
	}

	if cfg.Auth.TokenFile == "" {
		cfg.Auth.TokenFile = "~/.config/issuelens/token.yaml"
	}
	cfg.Auth.TokenFile = ExpandHome(cfg.Auth.TokenFile)

	if cfg.Auth.ClientID != "" && cfg.Auth.TokenURL == "" {
		cfg.Auth.TokenURL = "https://api.linear.app/oauth/token"
	}

	if cfg.Localize.CacheDir == "" {
		cfg.Localize.CacheDir = os.TempDir()
	}
	cfg.Localize.CacheDir = ExpandHome(cfg.Localize.CacheDir)

	if cfg.Localize.Extension == "" {
		cfg.Localize.Extension = ".png"
	}

	if cfg.Localize.Policy == "" {
		cfg.Localize.Policy = PolicyFailFast
	}

	if cfg.Localize.Concurrency == 0 {
		cfg.Localize.Concurrency = 1
	}

	if cfg.Localize.Timeout == "" {
		cfg.Localize.Timeout = "30s"
	}

	if cfg.Render.WordWrap == 0 {
		cfg.Render.WordWrap = 80
	}

	if cfg.Render.Style == "" {
		cfg.Render.Style = "auto"
	}

	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if u, err := url.Parse(c.Linear.AssetPrefix); err != nil || u.Scheme != "https" || u.Host == "" || !strings.HasSuffix(u.Path, "/") {
		return fmt.Errorf("invalid asset_prefix: %s (must be an https URL ending in /)", c.Linear.AssetPrefix)
	}

	if c.Linear.RateLimit < 0 {
		return fmt.Errorf("linear rate_limit cannot be negative")
	}

	if c.Localize.Policy != PolicyFailFast && c.Localize.Policy != PolicyBestEffort {
		return fmt.Errorf("invalid localize policy: %s (must be %s or %s)", c.Localize.Policy, PolicyFailFast, PolicyBestEffort)
	}

	if c.Localize.Concurrency < 1 {
		return fmt.Errorf("localize concurrency must be at least 1")
	}

	if !strings.HasPrefix(c.Localize.Extension, ".") {
		return fmt.Errorf("invalid localize extension: %q (must start with a dot)", c.Localize.Extension)
	}

	if _, err := time.ParseDuration(c.Localize.Timeout); err != nil {
		return fmt.Errorf("invalid localize timeout: %w", err)
	}

	if c.Render.WordWrap < 0 {
		return fmt.Errorf("render word_wrap cannot be negative")
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	if c.Auth.ClientID != "" && c.Auth.ClientSecret == "" {
		return fmt.Errorf("auth client_secret is required when client_id is set")
	}

	return nil
}

// LocalizeTimeout returns the parsed per-pass timeout. Call after Validate.
func (c *Config) LocalizeTimeout() time.Duration {
	d, err := time.ParseDuration(c.Localize.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
