package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andywolf/issuelens/internal/auth"
	"github.com/andywolf/issuelens/internal/security"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the stored Linear session",
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show where the Linear token comes from and when it expires",
	Args:  cobra.NoArgs,
	RunE:  authStatus,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store an access token in the token file",
	Long: `Store an access token in the token file.

The token is read from the first line of standard input.

Example:
  echo "$LINEAR_API_KEY" | issuelens auth login`,
	Args: cobra.NoArgs,
	RunE: authLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored token file",
	Args:  cobra.NoArgs,
	RunE:  authLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authStatusCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func authStatus(cmd *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sanitizer := security.NewLogSanitizer()
	out := cmd.OutOrStdout()

	source := "token file"
	switch {
	case cfg.Auth.AccessToken != "":
		source = "access token"
	case cfg.Auth.SecretPath != "":
		source = "secret " + cfg.Auth.SecretPath
	}
	fmt.Fprintf(out, "Token source: %s\n", source)

	store := auth.NewFileStore(cfg.Auth.TokenFile)
	fmt.Fprintf(out, "Token file: %s\n", sanitizer.SanitizePath(store.Path()))

	manager, err := auth.ManagerFromConfig(cfg.Auth)
	if err != nil {
		return err
	}

	_, err = manager.Token(ctx)
	switch {
	case err == nil:
		fmt.Fprintln(out, "Session: active")
	case errors.Is(err, auth.ErrNoSession) && manager.ExpiresAt().IsZero():
		fmt.Fprintln(out, "Session: none")
		return nil
	case errors.Is(err, auth.ErrNoSession):
		fmt.Fprintln(out, "Session: expired")
	default:
		fmt.Fprintf(out, "Session: error (%s)\n", sanitizer.SanitizeError(err))
		return nil
	}

	expires := "never"
	if at := manager.ExpiresAt(); !at.IsZero() {
		expires = at.Local().Format(time.RFC3339)
	}
	fmt.Fprintf(out, "Expires: %s\n", expires)
	fmt.Fprintf(out, "Refresh due: %t\n", manager.NeedsRefresh())
	return nil
}

func authLogin(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read token from stdin: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return fmt.Errorf("no token given on stdin")
	}

	store := auth.NewFileStore(cfg.Auth.TokenFile)
	if err := store.Save(&oauth2.Token{AccessToken: token}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", security.NewLogSanitizer().SanitizePath(store.Path()))
	return nil
}

func authLogout(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := auth.NewFileStore(cfg.Auth.TokenFile)
	if err := store.Clear(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Removed %s\n", security.NewLogSanitizer().SanitizePath(store.Path()))
	if cfg.Auth.AccessToken != "" {
		fmt.Fprintln(out, "An access token is still configured through the config file or environment.")
	}
	return nil
}
