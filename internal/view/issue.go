// Package view turns Linear issues and comments into display-ready markdown
// and metadata, localizing images hosted on the Linear asset domain.
package view

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/andywolf/issuelens/internal/linear"
)

// Localizer rewrites remote asset references in a markdown document.
type Localizer interface {
	Localize(ctx context.Context, doc string) (string, error)
}

// MetadataRow is one label of the detail sidebar. Rows with Tags render as
// a tag list; the others render Value.
type MetadataRow struct {
	Label string
	Value string
	Tags  []Tag
}

// Tag is a tag list entry with an optional hex color.
type Tag struct {
	Text  string
	Color string
}

// IssueDetail is the display model of a single issue.
type IssueDetail struct {
	Issue    *linear.Issue
	Markdown string
	Metadata []MetadataRow
}

// NewIssueDetail builds the detail model with the unlocalized markdown.
func NewIssueDetail(issue *linear.Issue) *IssueDetail {
	return &IssueDetail{
		Issue:    issue,
		Markdown: IssueMarkdown(issue),
		Metadata: IssueMetadata(issue),
	}
}

// IssueMarkdown is the issue title as a heading followed by its description,
// if it has one.
func IssueMarkdown(issue *linear.Issue) string {
	md := "# " + issue.Title
	if issue.Description != "" {
		md += "\n\n" + issue.Description
	}
	return md
}

const (
	estimationNotUsed = "notUsed"
	estimationTShirt  = "tShirt"
)

var tShirtSizes = map[float64]string{
	0: "-", 1: "XS", 2: "S", 3: "M", 5: "L", 8: "XL", 13: "XXL", 21: "XXXL",
}

// EstimateLabel formats an estimate for the team's estimation scale.
func EstimateLabel(estimate *float64, estimationType string) string {
	if estimate == nil {
		return "No Estimate"
	}
	if estimationType == estimationTShirt {
		if size, ok := tShirtSizes[*estimate]; ok {
			return size
		}
	}
	points := strconv.FormatFloat(*estimate, 'f', -1, 64)
	if *estimate == 1 {
		return points + " Point"
	}
	return points + " Points"
}

// CycleTitle prefers the cycle's name over its number.
func CycleTitle(cycle *linear.Cycle) string {
	if cycle.Name != "" {
		return cycle.Name
	}
	return fmt.Sprintf("Cycle %d", cycle.Number)
}

// FormatDueDate turns an API date (YYYY-MM-DD) into MM/DD/YYYY. Unparsable
// input is returned unchanged.
func FormatDueDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("01/02/2006")
}

// IssueMetadata builds the sidebar rows in display order.
func IssueMetadata(issue *linear.Issue) []MetadataRow {
	rows := []MetadataRow{
		{Label: "Status", Value: issue.State.Name},
		{Label: "Priority", Value: issue.PriorityLabel},
	}

	assignee := "Unassigned"
	if issue.Assignee != nil {
		assignee = issue.Assignee.DisplayName
	}
	rows = append(rows, MetadataRow{Label: "Assignee", Value: assignee})

	if issue.Team.IssueEstimationType != estimationNotUsed {
		rows = append(rows, MetadataRow{
			Label: "Estimate",
			Value: EstimateLabel(issue.Estimate, issue.Team.IssueEstimationType),
		})
	}

	if len(issue.Labels) > 0 {
		tags := make([]Tag, 0, len(issue.Labels))
		for _, l := range issue.Labels {
			tags = append(tags, Tag{Text: l.Name, Color: l.Color})
		}
		rows = append(rows, MetadataRow{Label: "Labels", Tags: tags})
	} else {
		rows = append(rows, MetadataRow{Label: "Labels", Value: "No Labels"})
	}

	if issue.DueDate != "" {
		rows = append(rows, MetadataRow{Label: "Due Date", Value: FormatDueDate(issue.DueDate)})
	}

	cycle := "No Cycle"
	if issue.Cycle != nil {
		cycle = CycleTitle(issue.Cycle)
	}
	project := "No Project"
	if issue.Project != nil {
		project = issue.Project.Name
	}
	milestone := "No Milestone"
	if issue.Milestone != nil {
		milestone = issue.Milestone.Name
	}
	parent := "No Issue"
	if issue.Parent != nil {
		parent = issue.Parent.Title
	}
	rows = append(rows,
		MetadataRow{Label: "Cycle", Value: cycle},
		MetadataRow{Label: "Project", Value: project},
		MetadataRow{Label: "Milestone", Value: milestone},
		MetadataRow{Label: "Parent Issue", Value: parent},
	)

	if tags := relationTags(issue.Relations, "related"); len(tags) > 0 {
		rows = append(rows, MetadataRow{Label: "Related", Tags: tags})
	}
	if tags := relationTags(issue.Relations, "duplicate"); len(tags) > 0 {
		rows = append(rows, MetadataRow{Label: "Duplicates", Tags: tags})
	}

	return rows
}

func relationTags(relations []linear.Relation, relationType string) []Tag {
	var tags []Tag
	for _, r := range relations {
		if r.Type == relationType {
			tags = append(tags, Tag{Text: r.RelatedIssue.Identifier})
		}
	}
	return tags
}
