package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/andywolf/issuelens/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "issuelens",
	Short: "issuelens - Read and discuss Linear issues from the terminal",
	Long: `issuelens renders Linear issues and comments in the terminal.

Images uploaded to Linear are only served to authenticated clients, so
issuelens downloads them into a local cache and points the rendered markdown
at the cached copies.

Example:
  issuelens issue view ENG-123
  issuelens comments ENG-123 --filter ada
  issuelens auth status`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// envBindings maps nested config keys to extra environment variables.
var envBindings = map[string][]string{
	"auth.access_token":    {"ISSUELENS_AUTH_ACCESS_TOKEN", "LINEAR_API_KEY"},
	"auth.secret_path":     {"ISSUELENS_AUTH_SECRET_PATH"},
	"auth.token_file":      {"ISSUELENS_AUTH_TOKEN_FILE"},
	"auth.client_id":       {"ISSUELENS_AUTH_CLIENT_ID"},
	"auth.client_secret":   {"ISSUELENS_AUTH_CLIENT_SECRET"},
	"linear.api_url":       {"ISSUELENS_LINEAR_API_URL"},
	"linear.rate_limit":    {"ISSUELENS_LINEAR_RATE_LIMIT"},
	"localize.cache_dir":   {"ISSUELENS_LOCALIZE_CACHE_DIR"},
	"localize.policy":      {"ISSUELENS_LOCALIZE_POLICY"},
	"localize.concurrency": {"ISSUELENS_LOCALIZE_CONCURRENCY"},
	"log.format":           {"ISSUELENS_LOG_FORMAT"},
	"log.cloud_project":    {"ISSUELENS_LOG_CLOUD_PROJECT"},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .issuelens.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".issuelens")
	}

	viper.SetEnvPrefix("ISSUELENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for key, envs := range envBindings {
		_ = viper.BindEnv(append([]string{key}, envs...)...)
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
