package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andywolf/issuelens/internal/auth"
	"github.com/andywolf/issuelens/internal/localize"
	"github.com/andywolf/issuelens/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
)

// setupConfig resets viper to an isolated config for one test.
func setupConfig(t *testing.T, values map[string]interface{}) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	viper.Set("auth.token_file", filepath.Join(dir, "token.yaml"))
	viper.Set("localize.cache_dir", filepath.Join(dir, "cache"))
	viper.Set("render.style", "notty")
	for k, v := range values {
		viper.Set(k, v)
	}
}

func newTestCommand(stdin string, setup func(cmd *cobra.Command)) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	if setup != nil {
		setup(cmd)
	}
	return cmd, &out, &errOut
}

func newLinearServer(t *testing.T, respond func(query string) string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(respond(string(body))))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte("from file"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{name: "stdin by default", want: "from stdin"},
		{name: "dash reads stdin", args: []string{"-"}, want: "from stdin"},
		{name: "file", args: []string{path}, want: "from file"},
		{name: "missing file", args: []string{filepath.Join(t.TempDir(), "nope.md")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readDocument(strings.NewReader("from stdin"), tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("readDocument() = %q, want %q", got, tt.want)
			}
		})
	}
}

type stubLocalizer func(ctx context.Context, doc string) (string, error)

func (f stubLocalizer) Localize(ctx context.Context, doc string) (string, error) { return f(ctx, doc) }

func TestTimeoutLocalizer(t *testing.T) {
	slow := stubLocalizer(func(ctx context.Context, doc string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	_, err := timeoutLocalizer{next: slow, timeout: 10 * time.Millisecond}.Localize(context.Background(), "doc")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}

	fast := stubLocalizer(func(ctx context.Context, doc string) (string, error) {
		if _, ok := ctx.Deadline(); ok {
			t.Error("zero timeout should not set a deadline")
		}
		return doc, nil
	})
	if out, err := (timeoutLocalizer{next: fast}).Localize(context.Background(), "doc"); err != nil || out != "doc" {
		t.Errorf("Localize() = %q, %v", out, err)
	}
}

func TestNewApp_InvalidConfig(t *testing.T) {
	setupConfig(t, map[string]interface{}{"localize.policy": "sometimes"})

	_, err := newApp(context.Background(), io.Discard)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}
}

func TestRunLocalize_NoReferencesPassesThrough(t *testing.T) {
	setupConfig(t, nil)

	doc := "# Notes\n\n![external](https://example.com/a.png)\n"
	cmd, out, _ := newTestCommand(doc, nil)
	if err := runLocalize(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != doc {
		t.Errorf("output = %q, want %q", out.String(), doc)
	}
}

func TestRunLocalize_NoSessionFails(t *testing.T) {
	setupConfig(t, nil)

	cmd, out, _ := newTestCommand("![a](https://uploads.linear.app/x/y)", nil)
	err := runLocalize(cmd, []string{"-"})

	var authErr *localize.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("expected no output, got %q", out.String())
	}
}

func TestViewIssue_Raw(t *testing.T) {
	server := newLinearServer(t, func(string) string {
		return `{"data":{"issue":{"id":"i1","identifier":"ENG-1","title":"Crash","description":"It breaks",
			"state":{"name":"Todo"},"team":{"issueEstimationType":"notUsed"},
			"labels":{"nodes":[]},"relations":{"nodes":[]}}}}`
	})
	setupConfig(t, map[string]interface{}{
		"linear.api_url":    server.URL,
		"auth.access_token": "lin_api_0123456789abcdef",
	})

	cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
		cmd.Flags().Bool("raw", true, "")
	})
	if err := viewIssue(cmd, []string{"ENG-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "# Crash\n\nIt breaks\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestViewIssue_Rendered(t *testing.T) {
	server := newLinearServer(t, func(string) string {
		return `{"data":{"issue":{"id":"i1","identifier":"ENG-1","title":"Crash","description":"It breaks",
			"state":{"name":"In Review"},"team":{"issueEstimationType":"notUsed"},
			"labels":{"nodes":[]},"relations":{"nodes":[]}}}}`
	})
	setupConfig(t, map[string]interface{}{
		"linear.api_url":    server.URL,
		"auth.access_token": "lin_api_0123456789abcdef",
	})

	cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
		cmd.Flags().Bool("raw", false, "")
	})
	if err := viewIssue(cmd, []string{"ENG-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Crash", "It breaks", "In Review", "Unassigned", "No Labels"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestListComments_Raw(t *testing.T) {
	server := newLinearServer(t, func(query string) string {
		if strings.Contains(query, "viewer") {
			return `{"data":{"viewer":{"id":"u1","displayName":"ada"}}}`
		}
		return `{"data":{"issue":{"comments":{"nodes":[
			{"id":"c1","body":"older","createdAt":"2024-01-01T10:00:00Z","user":{"id":"u2","displayName":"bob"}},
			{"id":"c2","body":"newer","url":"https://linear.app/acme/issue/ENG-1#comment-c2","createdAt":"2024-01-02T10:00:00Z","user":{"id":"u1","displayName":"ada"}}
		]}}}}`
	})
	setupConfig(t, map[string]interface{}{
		"linear.api_url":    server.URL,
		"auth.access_token": "lin_api_0123456789abcdef",
	})

	cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
		cmd.Flags().Bool("raw", true, "")
	})
	if err := listComments(cmd, []string{"ENG-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	newer, older := strings.Index(got, "newer"), strings.Index(got, "older")
	if newer < 0 || older < 0 || newer > older {
		t.Errorf("expected newest comment first, got %q", got)
	}
	if !strings.Contains(got, "## ada,") {
		t.Errorf("output missing author header: %q", got)
	}
	if !strings.Contains(got, "<https://linear.app/acme/issue/ENG-1#comment-c2>") {
		t.Errorf("output missing comment URL: %q", got)
	}
}

func TestListComments_Filter(t *testing.T) {
	server := newLinearServer(t, func(query string) string {
		if strings.Contains(query, "viewer") {
			return `{"data":{"viewer":{"id":"u1","displayName":"ada"}}}`
		}
		return `{"data":{"issue":{"comments":{"nodes":[
			{"id":"c1","body":"the **parser** fails","createdAt":"2024-01-01T10:00:00Z","user":{"id":"u2","displayName":"bob"}},
			{"id":"c2","body":"fixed on main","createdAt":"2024-01-02T10:00:00Z","user":{"id":"u1","displayName":"ada"}}
		]}}}}`
	})
	setupConfig(t, map[string]interface{}{
		"linear.api_url":    server.URL,
		"auth.access_token": "lin_api_0123456789abcdef",
	})

	tests := []struct {
		filter string
		want   []string
		absent []string
	}{
		{filter: "BOB", want: []string{"## bob,", "the **parser** fails"}, absent: []string{"fixed on main"}},
		{filter: "parser", want: []string{"## bob,"}, absent: []string{"## ada,"}},
		{filter: "main", want: []string{"## ada,"}, absent: []string{"## bob,"}},
		{filter: "nobody", want: []string{"No comments"}, absent: []string{"##"}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
				cmd.Flags().Bool("raw", true, "")
				cmd.Flags().String("filter", tt.filter, "")
			})
			if err := listComments(cmd, []string{"ENG-1"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := out.String()
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output missing %q: %q", w, got)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(got, a) {
					t.Errorf("output should not contain %q: %q", a, got)
				}
			}
		})
	}
}

func TestEditIssue_RequiresAField(t *testing.T) {
	cmd, _, _ := newTestCommand("", func(cmd *cobra.Command) {
		cmd.Flags().String("title", "", "")
		cmd.Flags().String("description", "", "")
	})
	if err := editIssue(cmd, []string{"ENG-1"}); err == nil || !strings.Contains(err.Error(), "nothing to update") {
		t.Errorf("expected nothing to update error, got %v", err)
	}
}

func TestDeleteComment_Declined(t *testing.T) {
	orig := confirm
	t.Cleanup(func() { confirm = orig })

	var asked string
	confirm = func(title, description string) (bool, error) {
		asked = description
		return false, nil
	}

	cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
		cmd.Flags().Bool("yes", false, "")
	})
	if err := deleteComment(cmd, []string{"c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(asked, "c1") {
		t.Errorf("prompt did not mention comment: %q", asked)
	}
	if strings.TrimSpace(out.String()) != "Cancelled" {
		t.Errorf("output = %q", out.String())
	}
}

func TestDeleteComment_Yes(t *testing.T) {
	orig := confirm
	t.Cleanup(func() { confirm = orig })
	confirm = func(string, string) (bool, error) {
		t.Error("confirmation should be skipped with --yes")
		return false, nil
	}

	var mu sync.Mutex
	var gotQuery string
	server := newLinearServer(t, func(query string) string {
		mu.Lock()
		gotQuery = query
		mu.Unlock()
		return `{"data":{"commentDelete":{"success":true}}}`
	})
	setupConfig(t, map[string]interface{}{
		"linear.api_url":    server.URL,
		"auth.access_token": "lin_api_0123456789abcdef",
	})

	cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
		cmd.Flags().Bool("yes", true, "")
	})
	if err := deleteComment(cmd, []string{"c1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(gotQuery, "commentDelete") {
		t.Errorf("unexpected query: %s", gotQuery)
	}
	if !strings.Contains(out.String(), "Deleted comment c1") {
		t.Errorf("output = %q", out.String())
	}
}

func TestAuth_LoginStatusLogout(t *testing.T) {
	setupConfig(t, nil)
	tokenFile := viper.GetString("auth.token_file")

	run := func(fn func(*cobra.Command, []string) error, stdin string) string {
		t.Helper()
		cmd, out, _ := newTestCommand(stdin, nil)
		if err := fn(cmd, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return out.String()
	}

	got := run(authStatus, "")
	for _, want := range []string{"Token source: token file", "Token file: " + tokenFile, "Session: none"} {
		if !strings.Contains(got, want) {
			t.Errorf("status before login missing %q: %q", want, got)
		}
	}

	if got := run(authLogin, "lin_api_0123456789abcdef\n"); !strings.Contains(got, "Token saved to") {
		t.Errorf("login output = %q", got)
	}

	got = run(authStatus, "")
	for _, want := range []string{"Session: active", "Expires: never", "Refresh due: false"} {
		if !strings.Contains(got, want) {
			t.Errorf("status after login missing %q: %q", want, got)
		}
	}

	if got := run(authLogout, ""); !strings.Contains(got, "Removed "+tokenFile) {
		t.Errorf("logout output = %q", got)
	}
	if _, err := os.Stat(tokenFile); !os.IsNotExist(err) {
		t.Errorf("token file still present: %v", err)
	}

	if got := run(authStatus, ""); !strings.Contains(got, "Session: none") {
		t.Errorf("status after logout = %q", got)
	}
	if got := run(authLogout, ""); !strings.Contains(got, "Removed") {
		t.Errorf("second logout output = %q", got)
	}
}

func TestAuthStatus_ExpiredToken(t *testing.T) {
	setupConfig(t, nil)
	expiry := time.Now().Add(-time.Hour).Truncate(time.Second)
	store := auth.NewFileStore(viper.GetString("auth.token_file"))
	if err := store.Save(&oauth2.Token{AccessToken: "old", Expiry: expiry}); err != nil {
		t.Fatal(err)
	}

	cmd, out, _ := newTestCommand("", nil)
	if err := authStatus(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Session: expired", "Expires: " + expiry.Local().Format(time.RFC3339), "Refresh due: true"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q: %q", want, got)
		}
	}
}

func TestAuthStatus_AccessTokenSource(t *testing.T) {
	setupConfig(t, map[string]interface{}{"auth.access_token": "lin_api_0123456789abcdef"})

	cmd, out, _ := newTestCommand("", nil)
	if err := authStatus(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "Token source: access token") {
		t.Errorf("output = %q", out.String())
	}

	cmd, out, _ = newTestCommand("", nil)
	if err := authLogout(cmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "still configured") {
		t.Errorf("logout did not mention the configured token: %q", out.String())
	}
}

func TestAuthLogin_EmptyInput(t *testing.T) {
	setupConfig(t, nil)

	for _, stdin := range []string{"", "  \n"} {
		cmd, _, _ := newTestCommand(stdin, nil)
		if err := authLogin(cmd, nil); err == nil {
			t.Errorf("authLogin(%q) succeeded, want error", stdin)
		}
	}
	if _, err := os.Stat(viper.GetString("auth.token_file")); !os.IsNotExist(err) {
		t.Errorf("token file written for empty input: %v", err)
	}
}

func TestPrintVersion(t *testing.T) {
	tests := []struct {
		verbose bool
		want    string
	}{
		{verbose: false, want: "issuelens " + version.Short() + " (commit:"},
		{verbose: true, want: "User agent: " + version.UserAgent()},
	}

	for _, tt := range tests {
		cmd, out, _ := newTestCommand("", func(cmd *cobra.Command) {
			cmd.Flags().BoolP("verbose", "v", tt.verbose, "")
		})
		printVersion(cmd, nil)
		if !strings.Contains(out.String(), tt.want) {
			t.Errorf("verbose=%t output = %q, want %q", tt.verbose, out.String(), tt.want)
		}
	}
}
