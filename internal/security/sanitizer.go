// Package security provides log sanitization and request pacing for issuelens
package security

import (
	"regexp"
	"strings"
)

// Common patterns for sensitive data
var (
	// Linear personal API keys and OAuth access tokens
	linearTokenPattern = regexp.MustCompile(`lin_(?:api|oauth)_[A-Za-z0-9]{16,}`)

	// Bearer tokens
	bearerTokenPattern = regexp.MustCompile(`(?i)bearer[[:space:]]+([a-zA-Z0-9_\-\.]+)`)

	// JSON Web Tokens
	jwtPattern = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]*\.eyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]*`)

	// Key/value secrets in config dumps and error strings
	secretAssignPattern = regexp.MustCompile(`(?i)(access[_-]?token|refresh[_-]?token|client[_-]?secret|api[_-]?key)[[:space:]]*[:=][[:space:]]*['"]?([a-zA-Z0-9_\-\.]{8,})`)

	// Signed query parameters on asset URLs
	signedQueryPattern = regexp.MustCompile(`(?i)([?&](?:signature|sig|token|x-amz-signature|x-goog-signature)=)[^&\s)"']+`)

	// Passwords in URLs
	urlPasswordPattern = regexp.MustCompile(`(?i)(https?)://[^:/\s]+:([^@\s]+)@`)

	homeDirPattern = regexp.MustCompile(`/(?:home|Users)/[^/\s]+`)
)

// LogSanitizer masks credentials in log messages before they are written.
type LogSanitizer struct {
	customPatterns []*regexp.Regexp
}

// NewLogSanitizer creates a new log sanitizer
func NewLogSanitizer() *LogSanitizer {
	return &LogSanitizer{
		customPatterns: make([]*regexp.Regexp, 0),
	}
}

// AddCustomPattern adds a custom pattern to sanitize
func (ls *LogSanitizer) AddCustomPattern(pattern *regexp.Regexp) {
	ls.customPatterns = append(ls.customPatterns, pattern)
}

// Sanitize removes or masks sensitive information from log messages
func (ls *LogSanitizer) Sanitize(message string) string {
	message = linearTokenPattern.ReplaceAllString(message, "[REDACTED-LINEAR-TOKEN]")
	message = jwtPattern.ReplaceAllString(message, "[REDACTED-JWT]")
	message = bearerTokenPattern.ReplaceAllString(message, "Bearer [REDACTED]")
	message = secretAssignPattern.ReplaceAllString(message, "${1}=[REDACTED]")
	message = signedQueryPattern.ReplaceAllString(message, "${1}[REDACTED]")
	message = urlPasswordPattern.ReplaceAllString(message, "${1}://[REDACTED]@")

	for _, pattern := range ls.customPatterns {
		message = pattern.ReplaceAllString(message, "[REDACTED]")
	}

	return message
}

// SanitizeError sanitizes error messages that might contain sensitive info
func (ls *LogSanitizer) SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return ls.Sanitize(err.Error())
}

// SanitizeMap sanitizes all values in a map (useful for labels/metadata)
func (ls *LogSanitizer) SanitizeMap(m map[string]string) map[string]string {
	sanitized := make(map[string]string, len(m))
	for k, v := range m {
		value := ls.Sanitize(v)
		if isSensitiveKey(k) {
			value = "[REDACTED]"
		}
		sanitized[k] = value
	}
	return sanitized
}

// SanitizePath replaces the user's home directory in a path with [HOME].
func (ls *LogSanitizer) SanitizePath(path string) string {
	return homeDirPattern.ReplaceAllString(path, "[HOME]")
}

// isSensitiveKey checks if a key name suggests sensitive content
func isSensitiveKey(key string) bool {
	lowerKey := strings.ToLower(key)
	for _, keyword := range []string{"password", "secret", "token", "credential", "bearer", "authorization"} {
		if strings.Contains(lowerKey, keyword) {
			return true
		}
	}
	return false
}
