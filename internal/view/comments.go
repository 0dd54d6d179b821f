package view

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andywolf/issuelens/internal/linear"
)

// CommentDateLayout renders e.g. "Monday 2 January 2006 at 15:04".
const CommentDateLayout = "Monday 2 January 2006 at 15:04"

// CommentItem is the display model of one comment.
type CommentItem struct {
	ID        string
	Author    string
	CreatedAt time.Time
	Created   string
	Keywords  []string
	Markdown  string
	CanEdit   bool
	URL       string
}

// NewCommentItems builds one item per comment, in input order. Only the
// author of a comment (viewerID) may edit or delete it.
func NewCommentItems(comments []linear.Comment, viewerID string) []CommentItem {
	items := make([]CommentItem, 0, len(comments))
	for _, c := range comments {
		author := c.User.DisplayName
		if author == "" {
			author = c.User.Name
		}
		items = append(items, CommentItem{
			ID:        c.ID,
			Author:    author,
			CreatedAt: c.CreatedAt,
			Created:   c.CreatedAt.Local().Format(CommentDateLayout),
			Keywords:  Keywords(c.Body),
			Markdown:  c.Body,
			CanEdit:   viewerID != "" && c.User.ID == viewerID,
			URL:       c.URL,
		})
	}
	return items
}

// FilterComments keeps the items matching every word of term. A word
// matches when it occurs, ignoring case, in the author or in a keyword.
// An empty term keeps all items.
func FilterComments(items []CommentItem, term string) []CommentItem {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return items
	}

	var out []CommentItem
	for _, item := range items {
		if item.matches(words) {
			out = append(out, item)
		}
	}
	return out
}

func (c CommentItem) matches(words []string) bool {
	author := strings.ToLower(c.Author)
	for _, w := range words {
		if strings.Contains(author, w) {
			continue
		}
		found := false
		for _, k := range c.Keywords {
			if strings.Contains(strings.ToLower(k), w) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// LocalizeComments localizes every comment body in place. A comment whose
// localization fails keeps its original markdown; the failures are joined.
func LocalizeComments(ctx context.Context, loc Localizer, items []CommentItem) error {
	var errs []error
	for i := range items {
		out, err := loc.Localize(ctx, items[i].Markdown)
		if err != nil {
			errs = append(errs, fmt.Errorf("comment %s: %w", items[i].ID, err))
			if ctx.Err() != nil {
				break
			}
		}
		if out != "" {
			items[i].Markdown = out
		}
	}
	return errors.Join(errs...)
}
