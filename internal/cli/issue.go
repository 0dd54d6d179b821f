package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/andywolf/issuelens/internal/linear"
	"github.com/andywolf/issuelens/internal/view"
	"github.com/spf13/cobra"
)

var issueCmd = &cobra.Command{
	Use:   "issue",
	Short: "View and edit issues",
}

var issueViewCmd = &cobra.Command{
	Use:   "view <issue-id>",
	Short: "Show an issue with its metadata",
	Long: `Show an issue rendered as markdown, followed by its metadata.

Images uploaded to Linear are downloaded to the local cache first. If that
fails the issue is still shown with the original image links.

Examples:
  issuelens issue view ENG-123
  issuelens issue view ENG-123 --raw   # print the localized markdown only`,
	Args: cobra.ExactArgs(1),
	RunE: viewIssue,
}

var issueEditCmd = &cobra.Command{
	Use:   "edit <issue-id>",
	Short: "Edit an issue title or description",
	Args:  cobra.ExactArgs(1),
	RunE:  editIssue,
}

func init() {
	rootCmd.AddCommand(issueCmd)
	issueCmd.AddCommand(issueViewCmd)
	issueCmd.AddCommand(issueEditCmd)

	issueViewCmd.Flags().Bool("raw", false, "Print markdown without terminal rendering")

	issueEditCmd.Flags().String("title", "", "New issue title")
	issueEditCmd.Flags().String("description", "", "New issue description (markdown)")
}

func viewIssue(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	issue, err := a.client.Issue(ctx, args[0])
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetBool("raw")
	return showIssue(ctx, cmd.OutOrStdout(), a, issue, raw)
}

// showIssue localizes the issue body and writes it out.
func showIssue(ctx context.Context, w io.Writer, a *app, issue *linear.Issue, raw bool) error {
	detail := view.NewIssueDetail(issue)

	controller := view.NewController(a.localizer, view.WithControllerLogger(a.logger))
	defer controller.Close()

	controller.Load(ctx, detail.Markdown)
	state, err := controller.Wait(ctx)
	if err != nil {
		return err
	}
	detail.Markdown = state.Markdown

	if raw {
		_, err := fmt.Fprintln(w, detail.Markdown)
		return err
	}

	out, err := a.renderer.Issue(detail)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}

func editIssue(cmd *cobra.Command, args []string) error {
	var update linear.IssueUpdate
	if cmd.Flags().Changed("title") {
		title, _ := cmd.Flags().GetString("title")
		update.Title = &title
	}
	if cmd.Flags().Changed("description") {
		description, _ := cmd.Flags().GetString("description")
		update.Description = &description
	}
	if update.Title == nil && update.Description == nil {
		return fmt.Errorf("nothing to update: pass --title and/or --description")
	}

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	issue, err := a.client.UpdateIssue(ctx, args[0], update)
	if err != nil {
		return err
	}

	a.logger.Info("updated issue %s", issue.Identifier)
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", issue.Identifier, issue.Title)
	return nil
}
