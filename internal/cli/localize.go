package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var localizeCmd = &cobra.Command{
	Use:   "localize [file|-]",
	Short: "Download Linear-hosted images of a markdown file and rewrite its links",
	Long: `Read a markdown document, download every image hosted on the Linear
asset domain into the cache directory and print the document with the image
references pointing at the cached files.

Reads standard input when no file or "-" is given.

Examples:
  issuelens localize notes.md
  pbpaste | issuelens localize`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLocalize,
}

func init() {
	rootCmd.AddCommand(localizeCmd)
}

func runLocalize(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.localizer.Localize(ctx, doc)
	if err != nil && out == "" {
		return fmt.Errorf("failed to localize document: %w", err)
	}
	if _, werr := fmt.Fprint(cmd.OutOrStdout(), out); werr != nil {
		return werr
	}
	if err != nil {
		return fmt.Errorf("document partially localized: %w", err)
	}
	return nil
}

func readDocument(stdin io.Reader, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	return string(data), nil
}
