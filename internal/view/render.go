package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(14)
	valueStyle   = lipgloss.NewStyle().Bold(true)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	editableMark = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✎")
)

// Renderer draws view models for the terminal.
type Renderer struct {
	md *glamour.TermRenderer
}

// NewRenderer creates a Renderer. style is "auto" or a glamour standard
// style name such as "dark", "light" or "notty".
func NewRenderer(style string, wordWrap int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(wordWrap)}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return &Renderer{md: md}, nil
}

// Markdown renders a markdown document.
func (r *Renderer) Markdown(doc string) (string, error) {
	out, err := r.md.Render(doc)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// Metadata renders sidebar rows, one per line.
func (r *Renderer) Metadata(rows []MetadataRow) string {
	var b strings.Builder
	for _, row := range rows {
		b.WriteString(labelStyle.Render(row.Label))
		if len(row.Tags) > 0 {
			tags := make([]string, 0, len(row.Tags))
			for _, t := range row.Tags {
				style := lipgloss.NewStyle().Padding(0, 1)
				if t.Color != "" {
					style = style.Foreground(lipgloss.Color(t.Color))
				}
				tags = append(tags, style.Render(t.Text))
			}
			b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tags...))
		} else {
			b.WriteString(valueStyle.Render(row.Value))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Issue renders the issue body followed by its metadata.
func (r *Renderer) Issue(detail *IssueDetail) (string, error) {
	body, err := r.Markdown(detail.Markdown)
	if err != nil {
		return "", err
	}
	return body + "\n" + r.Metadata(detail.Metadata), nil
}

// Comments renders a comment list, each comment with a header line.
func (r *Renderer) Comments(items []CommentItem) (string, error) {
	if len(items) == 0 {
		return mutedStyle.Render("No comments") + "\n", nil
	}

	var b strings.Builder
	for _, item := range items {
		header := headerStyle.Render(item.Author) + " " + mutedStyle.Render(item.Created)
		if item.CanEdit {
			header += " " + editableMark
		}
		b.WriteString(header)
		b.WriteString(" " + mutedStyle.Render("["+item.ID+"]"))
		b.WriteByte('\n')
		if item.URL != "" {
			b.WriteString(mutedStyle.Render(item.URL))
			b.WriteByte('\n')
		}

		body, err := r.Markdown(item.Markdown)
		if err != nil {
			return "", err
		}
		b.WriteString(body)
	}
	return b.String(), nil
}
