package localize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/andywolf/issuelens/internal/version"
	"github.com/google/uuid"
)

// bodyReader records read errors so they can be told apart from write errors.
type bodyReader struct {
	r   io.Reader
	err error
}

func (b *bodyReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err != nil && err != io.EOF {
		b.err = err
	}
	return n, err
}

// downloader streams authenticated assets into a cache directory.
type downloader struct {
	httpClient *http.Client
}

// download fetches rawURL with the bearer token and stores the body at dest.
// The body is written to a sibling temp file and renamed onto dest only
// after it was read completely, so dest never holds a partial download.
func (d *downloader) download(ctx context.Context, rawURL, token, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &NetworkError{URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return &NetworkError{URL: rawURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{URL: rawURL, Err: fmt.Errorf("asset host rejected token (status %d)", resp.StatusCode)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected response")}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &FilesystemError{URL: rawURL, Path: dir, Err: err}
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.part", filepath.Base(dest), uuid.NewString()))
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return &FilesystemError{URL: rawURL, Path: tmpPath, Err: err}
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	body := &bodyReader{r: resp.Body}
	n, copyErr := io.Copy(f, body)
	closeErr := f.Close()

	switch {
	case body.err != nil:
		return &NetworkError{URL: rawURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", body.err)}
	case copyErr != nil:
		return &FilesystemError{URL: rawURL, Path: tmpPath, Err: copyErr}
	case closeErr != nil:
		return &FilesystemError{URL: rawURL, Path: tmpPath, Err: closeErr}
	case resp.ContentLength >= 0 && n != resp.ContentLength:
		return &NetworkError{URL: rawURL, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("body truncated: got %d of %d bytes", n, resp.ContentLength)}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return &FilesystemError{URL: rawURL, Path: dest, Err: err}
	}
	committed = true

	return nil
}
