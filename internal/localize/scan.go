package localize

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultAssetPrefix is the authenticated upload host for Linear attachments.
const DefaultAssetPrefix = "https://uploads.linear.app/"

// Reference is one markdown image whose URL points at the asset host.
// Start and End are byte offsets of Full within the scanned document.
type Reference struct {
	Full  string
	Alt   string
	URL   string
	Start int
	End   int
}

// Scanner finds markdown image references under a fixed URL prefix.
type Scanner struct {
	re *regexp.Regexp
}

// NewScanner creates a Scanner matching ![alt](<prefix>...). The URL runs
// until whitespace or a closing parenthesis.
func NewScanner(prefix string) *Scanner {
	return &Scanner{
		re: regexp.MustCompile(`!\[([^\]]*)\]\((` + regexp.QuoteMeta(prefix) + `[^\s)]+)\)`),
	}
}

// Scan returns all non-overlapping references in doc, left to right.
func (s *Scanner) Scan(doc string) []Reference {
	matches := s.re.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return nil
	}

	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, Reference{
			Full:  doc[m[0]:m[1]],
			Alt:   doc[m[2]:m[3]],
			URL:   doc[m[4]:m[5]],
			Start: m[0],
			End:   m[1],
		})
	}
	return refs
}

// Distinct returns the first reference for each distinct Full text,
// preserving document order.
func Distinct(refs []Reference) []Reference {
	seen := make(map[string]bool, len(refs))
	out := make([]Reference, 0, len(refs))
	for _, ref := range refs {
		if seen[ref.Full] {
			continue
		}
		seen[ref.Full] = true
		out = append(out, ref)
	}
	return out
}

// Rewrite replaces every reference whose Full text has an entry in
// replacements. refs must come from Scan on the same doc. Bytes outside
// the replaced spans are copied unchanged.
func Rewrite(doc string, refs []Reference, replacements map[string]string) string {
	if len(refs) == 0 || len(replacements) == 0 {
		return doc
	}

	var sb strings.Builder
	sb.Grow(len(doc))

	last := 0
	for _, ref := range refs {
		repl, ok := replacements[ref.Full]
		if !ok {
			continue
		}
		sb.WriteString(doc[last:ref.Start])
		sb.WriteString(repl)
		last = ref.End
	}
	sb.WriteString(doc[last:])

	return sb.String()
}

// LocalName derives the cache file name from the last segment of rawURL's
// escaped path, ignoring query and fragment, with ext appended. Percent
// escapes are kept so the name stays valid inside a markdown link.
func LocalName(rawURL, ext string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid asset URL: %w", err)
	}

	escaped := u.EscapedPath()
	segment := escaped[strings.LastIndex(escaped, "/")+1:]
	decoded, err := url.PathUnescape(segment)
	if err != nil {
		return "", fmt.Errorf("invalid asset URL: %w", err)
	}
	switch decoded {
	case "", ".", "..":
		return "", fmt.Errorf("asset URL %s has no usable file name", rawURL)
	}
	if strings.ContainsAny(decoded, `/\`+"\x00") {
		return "", fmt.Errorf("asset URL %s has an unsafe file name", rawURL)
	}

	return segment + ext, nil
}

// LocalMarkdown returns the image tag referencing a cached file.
func LocalMarkdown(name, absPath string) string {
	p := filepath.ToSlash(absPath)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return fmt.Sprintf("![%s](file://%s)", name, p)
}
