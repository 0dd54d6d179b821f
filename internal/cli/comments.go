package cli

import (
	"fmt"

	"github.com/andywolf/issuelens/internal/view"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var commentsCmd = &cobra.Command{
	Use:   "comments <issue-id>",
	Short: "List the comments of an issue, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  listComments,
}

var commentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Add, edit or delete comments",
}

var commentAddCmd = &cobra.Command{
	Use:   "add <issue-id>",
	Short: "Add a comment to an issue",
	Args:  cobra.ExactArgs(1),
	RunE:  addComment,
}

var commentEditCmd = &cobra.Command{
	Use:   "edit <comment-id>",
	Short: "Replace the body of one of your comments",
	Args:  cobra.ExactArgs(1),
	RunE:  editComment,
}

var commentDeleteCmd = &cobra.Command{
	Use:   "delete <comment-id>",
	Short: "Delete one of your comments",
	Long: `Delete one of your comments.

Asks for confirmation unless --yes is given.`,
	Args: cobra.ExactArgs(1),
	RunE: deleteComment,
}

// confirm asks a yes/no question. Replaced in tests.
var confirm = func(title, description string) (bool, error) {
	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Delete").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("prompt cancelled: %w", err)
	}
	return confirmed, nil
}

func init() {
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(commentCmd)
	commentCmd.AddCommand(commentAddCmd)
	commentCmd.AddCommand(commentEditCmd)
	commentCmd.AddCommand(commentDeleteCmd)

	commentsCmd.Flags().Bool("raw", false, "Print markdown without terminal rendering")
	commentsCmd.Flags().String("filter", "", "Only show comments whose author or content matches")

	commentAddCmd.Flags().String("body", "", "Comment body (markdown)")
	_ = commentAddCmd.MarkFlagRequired("body")
	commentEditCmd.Flags().String("body", "", "New comment body (markdown)")
	_ = commentEditCmd.MarkFlagRequired("body")
	commentDeleteCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
}

func listComments(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	viewer, err := a.client.Viewer(ctx)
	if err != nil {
		return err
	}
	comments, err := a.client.Comments(ctx, args[0])
	if err != nil {
		return err
	}

	filter, _ := cmd.Flags().GetString("filter")
	items := view.FilterComments(view.NewCommentItems(comments, viewer.ID), filter)
	if err := view.LocalizeComments(ctx, a.localizer, items); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		a.logger.Warning("some comment images were not localized: %v", err)
	}

	out := cmd.OutOrStdout()
	if raw, _ := cmd.Flags().GetBool("raw"); raw {
		if len(items) == 0 {
			fmt.Fprintln(out, "No comments")
			return nil
		}
		for _, item := range items {
			fmt.Fprintf(out, "## %s, %s\n", item.Author, item.Created)
			if item.URL != "" {
				fmt.Fprintf(out, "<%s>\n", item.URL)
			}
			fmt.Fprintf(out, "\n%s\n\n", item.Markdown)
		}
		return nil
	}

	rendered, err := a.renderer.Comments(items)
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}

func addComment(cmd *cobra.Command, args []string) error {
	body, _ := cmd.Flags().GetString("body")

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	comment, err := a.client.CreateComment(ctx, args[0], body)
	if err != nil {
		return err
	}

	a.logger.Info("added comment %s to %s", comment.ID, args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "Added comment %s\n", comment.ID)
	return nil
}

func editComment(cmd *cobra.Command, args []string) error {
	body, _ := cmd.Flags().GetString("body")

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	comment, err := a.client.UpdateComment(ctx, args[0], body)
	if err != nil {
		return err
	}

	a.logger.Info("updated comment %s", comment.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Updated comment %s\n", comment.ID)
	return nil
}

func deleteComment(cmd *cobra.Command, args []string) error {
	commentID := args[0]

	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		ok, err := confirm("Delete comment?", fmt.Sprintf("Comment %s will be deleted permanently.", commentID))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
			return nil
		}
	}

	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.DeleteComment(ctx, commentID); err != nil {
		return err
	}

	a.logger.Info("deleted comment %s", commentID)
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted comment %s\n", commentID)
	return nil
}
