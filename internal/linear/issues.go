package linear

import (
	"context"
	"fmt"
	"sort"
)

const userFields = `id name displayName avatarUrl`

const issueFields = `
	id identifier title description url priority priorityLabel estimate dueDate
	state { id name type color }
	assignee { ` + userFields + ` }
	team { id key issueEstimationType }
	labels { nodes { id name color } }
	cycle { id number name startsAt endsAt }
	project { id name }
	projectMilestone { id name }
	parent { id identifier title state { id name type color } }
	relations { nodes { id type relatedIssue { id identifier title } } }`

const commentFields = `id body url createdAt updatedAt user { ` + userFields + ` }`

// issueNode is the wire shape of an issue, with connection wrappers.
type issueNode struct {
	Issue
	Labels struct {
		Nodes []Label `json:"nodes"`
	} `json:"labels"`
	Relations struct {
		Nodes []Relation `json:"nodes"`
	} `json:"relations"`
}

func (n *issueNode) issue() *Issue {
	issue := n.Issue
	issue.Labels = n.Labels.Nodes
	issue.Relations = n.Relations.Nodes
	return &issue
}

// Viewer returns the authenticated user.
func (c *Client) Viewer(ctx context.Context) (*User, error) {
	var data struct {
		Viewer User `json:"viewer"`
	}
	if err := c.do(ctx, `query { viewer { `+userFields+` } }`, nil, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch viewer: %w", err)
	}
	return &data.Viewer, nil
}

// Issue fetches an issue by ID or identifier (e.g. "ENG-123").
func (c *Client) Issue(ctx context.Context, id string) (*Issue, error) {
	if id == "" {
		return nil, fmt.Errorf("issue ID cannot be empty")
	}

	var data struct {
		Issue *issueNode `json:"issue"`
	}
	query := `query Issue($id: String!) { issue(id: $id) { ` + issueFields + ` } }`
	if err := c.do(ctx, query, map[string]interface{}{"id": id}, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch issue %s: %w", id, err)
	}
	if data.Issue == nil {
		return nil, fmt.Errorf("issue %s not found", id)
	}
	return data.Issue.issue(), nil
}

// Comments returns the comments of an issue, newest first.
func (c *Client) Comments(ctx context.Context, issueID string) ([]Comment, error) {
	if issueID == "" {
		return nil, fmt.Errorf("issue ID cannot be empty")
	}

	var data struct {
		Issue *struct {
			Comments struct {
				Nodes []Comment `json:"nodes"`
			} `json:"comments"`
		} `json:"issue"`
	}
	query := `query Comments($id: String!) { issue(id: $id) { comments(first: 100) { nodes { ` + commentFields + ` } } } }`
	if err := c.do(ctx, query, map[string]interface{}{"id": issueID}, &data); err != nil {
		return nil, fmt.Errorf("failed to fetch comments for %s: %w", issueID, err)
	}
	if data.Issue == nil {
		return nil, fmt.Errorf("issue %s not found", issueID)
	}

	comments := data.Issue.Comments.Nodes
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments, nil
}

// CreateComment adds a comment to an issue.
func (c *Client) CreateComment(ctx context.Context, issueID, body string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("comment body cannot be empty")
	}

	var data struct {
		CommentCreate struct {
			Success bool    `json:"success"`
			Comment Comment `json:"comment"`
		} `json:"commentCreate"`
	}
	query := `mutation CommentCreate($input: CommentCreateInput!) {
		commentCreate(input: $input) { success comment { ` + commentFields + ` } } }`
	input := map[string]interface{}{"issueId": issueID, "body": body}
	if err := c.do(ctx, query, map[string]interface{}{"input": input}, &data); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	if !data.CommentCreate.Success {
		return nil, fmt.Errorf("failed to create comment: not accepted")
	}
	return &data.CommentCreate.Comment, nil
}

// UpdateComment replaces a comment body.
func (c *Client) UpdateComment(ctx context.Context, commentID, body string) (*Comment, error) {
	if body == "" {
		return nil, fmt.Errorf("comment body cannot be empty")
	}

	var data struct {
		CommentUpdate struct {
			Success bool    `json:"success"`
			Comment Comment `json:"comment"`
		} `json:"commentUpdate"`
	}
	query := `mutation CommentUpdate($id: String!, $input: CommentUpdateInput!) {
		commentUpdate(id: $id, input: $input) { success comment { ` + commentFields + ` } } }`
	vars := map[string]interface{}{"id": commentID, "input": map[string]interface{}{"body": body}}
	if err := c.do(ctx, query, vars, &data); err != nil {
		return nil, fmt.Errorf("failed to update comment %s: %w", commentID, err)
	}
	if !data.CommentUpdate.Success {
		return nil, fmt.Errorf("failed to update comment %s: not accepted", commentID)
	}
	return &data.CommentUpdate.Comment, nil
}

// DeleteComment deletes a comment.
func (c *Client) DeleteComment(ctx context.Context, commentID string) error {
	var data struct {
		CommentDelete struct {
			Success bool `json:"success"`
		} `json:"commentDelete"`
	}
	query := `mutation CommentDelete($id: String!) { commentDelete(id: $id) { success } }`
	if err := c.do(ctx, query, map[string]interface{}{"id": commentID}, &data); err != nil {
		return fmt.Errorf("failed to delete comment %s: %w", commentID, err)
	}
	if !data.CommentDelete.Success {
		return fmt.Errorf("failed to delete comment %s: not accepted", commentID)
	}
	return nil
}

// UpdateIssue edits the title and/or description of an issue.
func (c *Client) UpdateIssue(ctx context.Context, issueID string, update IssueUpdate) (*Issue, error) {
	if update.Title == nil && update.Description == nil {
		return nil, fmt.Errorf("nothing to update")
	}

	var data struct {
		IssueUpdate struct {
			Success bool       `json:"success"`
			Issue   *issueNode `json:"issue"`
		} `json:"issueUpdate"`
	}
	query := `mutation IssueUpdate($id: String!, $input: IssueUpdateInput!) {
		issueUpdate(id: $id, input: $input) { success issue { ` + issueFields + ` } } }`
	if err := c.do(ctx, query, map[string]interface{}{"id": issueID, "input": update}, &data); err != nil {
		return nil, fmt.Errorf("failed to update issue %s: %w", issueID, err)
	}
	if !data.IssueUpdate.Success || data.IssueUpdate.Issue == nil {
		return nil, fmt.Errorf("failed to update issue %s: not accepted", issueID)
	}
	return data.IssueUpdate.Issue.issue(), nil
}
