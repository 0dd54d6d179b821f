package localize

import "fmt"

// AuthError reports a missing session or a token rejected by the asset host.
type AuthError struct {
	URL string // empty when no request was made
	Err error
}

func (e *AuthError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("authentication failed: %v", e.Err)
	}
	return fmt.Sprintf("authentication failed for %s: %v", e.URL, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NetworkError reports a failed request, a non-2xx status, or a body that
// could not be read to the end.
type NetworkError struct {
	URL        string
	StatusCode int // zero when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// FilesystemError reports a failure to create or write a cached file.
type FilesystemError struct {
	URL  string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("caching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("caching %s to %s: %v", e.URL, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }
