package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/andywolf/issuelens/internal/auth"
	"github.com/andywolf/issuelens/internal/cloud/gcp"
	"github.com/andywolf/issuelens/internal/config"
	"github.com/andywolf/issuelens/internal/linear"
	"github.com/andywolf/issuelens/internal/localize"
	"github.com/andywolf/issuelens/internal/logging"
	"github.com/andywolf/issuelens/internal/security"
	"github.com/andywolf/issuelens/internal/view"
	"github.com/spf13/viper"
)

// app bundles the services a command needs, built from config.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	client    *linear.Client
	localizer view.Localizer
	renderer  *view.Renderer
	closers   []io.Closer
}

// loadConfig loads and validates the merged configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp loads config and wires the logger, token chain, Linear client,
// localizer and renderer.
func newApp(ctx context.Context, stderr io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}

	logOpts := []logging.Option{
		logging.WithWriter(stderr),
		logging.WithJSON(cfg.Log.Format == "json"),
		logging.WithVerbose(viper.GetBool("verbose")),
	}
	if cfg.Log.CloudProject != "" {
		sink, err := gcp.NewCloudSink(ctx, cfg.Log.CloudProject, gcp.DefaultLogID)
		if err != nil {
			return nil, fmt.Errorf("failed to create cloud log sink: %w", err)
		}
		logOpts = append(logOpts, logging.WithSink(sink))
	}
	a.logger = logging.New(logOpts...)

	var secrets gcp.SecretFetcher
	if cfg.Auth.SecretPath != "" {
		client, err := gcp.NewSecretManagerClient(ctx, cfg.Log.CloudProject)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create secret manager client: %w", err)
		}
		a.closers = append(a.closers, client)
		secrets = client
	}

	tokens, err := auth.FromConfig(cfg.Auth, secrets)
	if err != nil {
		a.Close()
		return nil, err
	}

	policy, err := localize.ParsePolicy(cfg.Localize.Policy)
	if err != nil {
		a.Close()
		return nil, err
	}
	httpClient := &http.Client{Timeout: 30 * time.Second}
	if cfg.Linear.RateLimit > 0 {
		limiter := security.NewRateLimiter(cfg.Linear.RateLimit, time.Minute)
		httpClient.Transport = limiter.Transport(http.DefaultTransport)
	}

	loc, err := localize.New(tokens,
		localize.WithHTTPClient(httpClient),
		localize.WithAssetPrefix(cfg.Linear.AssetPrefix),
		localize.WithCacheDir(cfg.Localize.CacheDir),
		localize.WithExtension(cfg.Localize.Extension),
		localize.WithPolicy(policy),
		localize.WithConcurrency(cfg.Localize.Concurrency),
		localize.WithLogger(a.logger.With(map[string]string{"component": "localize"})),
	)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create localizer: %w", err)
	}
	a.localizer = timeoutLocalizer{next: loc, timeout: cfg.LocalizeTimeout()}

	a.renderer, err = view.NewRenderer(cfg.Render.Style, cfg.Render.WordWrap)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.client = linear.NewClient(tokens,
		linear.WithBaseURL(cfg.Linear.APIURL),
		linear.WithHTTPClient(httpClient),
	)

	a.logger.Debug("cache dir %s, policy %s, concurrency %d", loc.CacheDir(), policy, cfg.Localize.Concurrency)
	return a, nil
}

// Close releases clients and flushes the logger.
func (a *app) Close() {
	for _, c := range a.closers {
		_ = c.Close()
	}
	if a.logger != nil {
		_ = a.logger.Close()
	}
}

// timeoutLocalizer bounds each localization pass.
type timeoutLocalizer struct {
	next    view.Localizer
	timeout time.Duration
}

func (t timeoutLocalizer) Localize(ctx context.Context, doc string) (string, error) {
	if t.timeout <= 0 {
		return t.next.Localize(ctx, doc)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Localize(ctx, doc)
}

// commandContext returns a context cancelled on interrupt.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
