package cli

import (
	"fmt"

	"github.com/andywolf/issuelens/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Print version information including commit hash and build date.

With -v the output also shows the user agent sent to Linear.`,
	Args: cobra.NoArgs,
	Run:  printVersion,
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "print verbose version information")
	rootCmd.AddCommand(versionCmd)
}

func printVersion(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		fmt.Fprintln(out, version.Full())
		fmt.Fprintf(out, "  User agent: %s\n", version.UserAgent())
		return
	}
	fmt.Fprintln(out, version.Info())
}
