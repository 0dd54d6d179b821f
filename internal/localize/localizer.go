// Package localize rewrites markdown image references that point at the
// authenticated asset host into references to locally cached copies.
//
// A pass scans the document, obtains one bearer token, downloads each
// distinct reference into the cache directory and rewrites the matched spans.
// Cached files are named after the last URL path segment plus an extension;
// two URLs sharing that segment map to the same file and the later download
// wins.
package localize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/andywolf/issuelens/internal/auth"
	"github.com/andywolf/issuelens/internal/logging"
)

// Policy decides what happens when one reference fails.
type Policy int

const (
	// FailFast aborts the pass on the first error and returns no document.
	FailFast Policy = iota
	// BestEffort attempts every reference and returns the partially
	// rewritten document together with the joined errors.
	BestEffort
)

// ParsePolicy maps a config value ("fail-fast", "best-effort") to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "fail-fast":
		return FailFast, nil
	case "best-effort":
		return BestEffort, nil
	default:
		return FailFast, fmt.Errorf("unknown localize policy %q", s)
	}
}

func (p Policy) String() string {
	if p == BestEffort {
		return "best-effort"
	}
	return "fail-fast"
}

// Localizer performs localization passes.
type Localizer struct {
	scanner     *Scanner
	tokens      auth.TokenProvider
	dl          *downloader
	cacheDir    string
	ext         string
	policy      Policy
	concurrency int
	logger      *logging.Logger
}

// Option configures a Localizer.
type Option func(*Localizer)

// WithHTTPClient sets the client used for asset downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(l *Localizer) {
		l.dl.httpClient = client
	}
}

// WithAssetPrefix sets the URL prefix of the authenticated asset host.
func WithAssetPrefix(prefix string) Option {
	return func(l *Localizer) {
		l.scanner = NewScanner(prefix)
	}
}

// WithCacheDir sets the directory cached assets are written to.
func WithCacheDir(dir string) Option {
	return func(l *Localizer) {
		l.cacheDir = dir
	}
}

// WithExtension sets the suffix appended to cached file names.
func WithExtension(ext string) Option {
	return func(l *Localizer) {
		l.ext = ext
	}
}

// WithPolicy sets the failure policy.
func WithPolicy(p Policy) Option {
	return func(l *Localizer) {
		l.policy = p
	}
}

// WithConcurrency bounds the number of simultaneous downloads. 1 keeps the
// pass strictly sequential.
func WithConcurrency(n int) Option {
	return func(l *Localizer) {
		l.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(l *Localizer) {
		l.logger = logger
	}
}

// New creates a Localizer that authenticates with tokens.
func New(tokens auth.TokenProvider, opts ...Option) (*Localizer, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token provider cannot be nil")
	}

	l := &Localizer{
		scanner:     NewScanner(DefaultAssetPrefix),
		tokens:      tokens,
		dl:          &downloader{httpClient: &http.Client{Timeout: 30 * time.Second}},
		cacheDir:    os.TempDir(),
		ext:         ".png",
		policy:      FailFast,
		concurrency: 1,
		logger:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1")
	}
	abs, err := filepath.Abs(l.cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cache dir: %w", err)
	}
	l.cacheDir = abs

	return l, nil
}

// CacheDir returns the absolute cache directory.
func (l *Localizer) CacheDir() string {
	return l.cacheDir
}

// outcome is the result of localizing one distinct reference.
type outcome struct {
	replacement string
	err         error
}

// Localize rewrites doc. A document without references is returned as is
// and no token is requested. Failing to obtain a token fails the pass with
// an *AuthError before any download starts.
func (l *Localizer) Localize(ctx context.Context, doc string) (string, error) {
	refs := l.scanner.Scan(doc)
	if len(refs) == 0 {
		return doc, nil
	}

	log := l.logger.With(map[string]string{"pass_id": uuid.NewString()[:8]})

	token, err := l.tokens.Token(ctx)
	if err != nil {
		return "", &AuthError{Err: err}
	}

	distinct := Distinct(refs)
	log.Debug("localizing %d images (%d references, policy %s)", len(distinct), len(refs), l.policy)

	var outcomes []outcome
	if l.concurrency == 1 || len(distinct) == 1 {
		outcomes = l.runSequential(ctx, token, distinct)
	} else {
		outcomes, err = l.runPooled(ctx, token, distinct)
		if err != nil {
			return "", err
		}
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	replacements := make(map[string]string, len(distinct))
	var errs []error
	for i, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		if o.replacement != "" {
			replacements[distinct[i].Full] = o.replacement
		}
	}

	if len(errs) > 0 {
		if l.policy == FailFast {
			log.Error("localization aborted: %v", errs[0])
			return "", errs[0]
		}
		for _, e := range errs {
			log.Warning("image not localized: %v", e)
		}
		log.Info("localized %d of %d images", len(replacements), len(distinct))
		return Rewrite(doc, refs, replacements), errors.Join(errs...)
	}

	log.Debug("localized %d images into %s", len(replacements), l.cacheDir)
	return Rewrite(doc, refs, replacements), nil
}

// runSequential processes references one after another. Under FailFast
// the first failure leaves the remaining outcomes empty.
func (l *Localizer) runSequential(ctx context.Context, token string, refs []Reference) []outcome {
	outcomes := make([]outcome, len(refs))
	for i, ref := range refs {
		if ctx.Err() != nil {
			break
		}
		repl, err := l.localizeOne(ctx, token, ref)
		outcomes[i] = outcome{replacement: repl, err: err}
		if err != nil && l.policy == FailFast {
			break
		}
	}
	return outcomes
}

// runPooled processes references on a bounded worker pool. Under FailFast
// the first failure cancels the downloads still in flight and only that
// failure is reported.
func (l *Localizer) runPooled(ctx context.Context, token string, refs []Reference) ([]outcome, error) {
	size := l.concurrency
	if size > len(refs) {
		size = len(refs)
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create download pool: %w", err)
	}
	defer pool.Release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make([]outcome, len(refs))
	var (
		wg        sync.WaitGroup
		firstOnce sync.Once
		firstIdx  = -1
	)

	for i, ref := range refs {
		wg.Add(1)
		task := func() {
			defer wg.Done()
			if runCtx.Err() != nil {
				return
			}
			repl, err := l.localizeOne(runCtx, token, ref)
			outcomes[i] = outcome{replacement: repl, err: err}
			if err != nil && l.policy == FailFast {
				firstOnce.Do(func() {
					firstIdx = i
					cancel()
				})
			}
		}
		if err := pool.Submit(task); err != nil {
			wg.Done()
			cancel()
			wg.Wait()
			return nil, fmt.Errorf("failed to schedule download: %w", err)
		}
	}
	wg.Wait()

	if l.policy == FailFast && firstIdx >= 0 {
		only := make([]outcome, len(refs))
		only[firstIdx] = outcomes[firstIdx]
		return only, nil
	}
	return outcomes, nil
}

// localizeOne downloads a single reference and returns its replacement.
func (l *Localizer) localizeOne(ctx context.Context, token string, ref Reference) (string, error) {
	name, err := LocalName(ref.URL, l.ext)
	if err != nil {
		return "", &FilesystemError{URL: ref.URL, Err: err}
	}
	dest := filepath.Join(l.cacheDir, name)

	if err := l.dl.download(ctx, ref.URL, token, dest); err != nil {
		return "", err
	}

	l.logger.Debug("cached %s as %s", ref.URL, dest)
	return LocalMarkdown(name, dest), nil
}
