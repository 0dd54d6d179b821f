package linear

import "time"

// User is a Linear workspace member.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

// State is an issue workflow state.
type State struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"` // triage, backlog, unstarted, started, completed, canceled
	Color string `json:"color"`
}

// Label is an issue label.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Cycle is a team iteration.
type Cycle struct {
	ID       string    `json:"id"`
	Number   int       `json:"number"`
	Name     string    `json:"name,omitempty"`
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
}

// Project groups issues across teams.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Milestone is a project milestone.
type Milestone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Team owns issues and their estimation scale.
type Team struct {
	ID                  string `json:"id"`
	Key                 string `json:"key"`
	IssueEstimationType string `json:"issueEstimationType"` // notUsed, exponential, fibonacci, linear, tShirt
}

// IssueRef is the minimal shape of a linked issue.
type IssueRef struct {
	ID         string `json:"id"`
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	State      *State `json:"state,omitempty"`
}

// Relation links an issue to another one.
type Relation struct {
	ID           string   `json:"id"`
	Type         string   `json:"type"` // related, duplicate, blocks
	RelatedIssue IssueRef `json:"relatedIssue"`
}

// Issue is the detail view of a Linear issue.
type Issue struct {
	ID            string     `json:"id"`
	Identifier    string     `json:"identifier"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	URL           string     `json:"url"`
	Priority      int        `json:"priority"`
	PriorityLabel string     `json:"priorityLabel"`
	Estimate      *float64   `json:"estimate,omitempty"`
	DueDate       string     `json:"dueDate,omitempty"` // YYYY-MM-DD
	State         State      `json:"state"`
	Assignee      *User      `json:"assignee,omitempty"`
	Team          Team       `json:"team"`
	Labels        []Label    `json:"labels"`
	Cycle         *Cycle     `json:"cycle,omitempty"`
	Project       *Project   `json:"project,omitempty"`
	Milestone     *Milestone `json:"projectMilestone,omitempty"`
	Parent        *IssueRef  `json:"parent,omitempty"`
	Relations     []Relation `json:"relations"`
}

// Comment is a comment on an issue.
type Comment struct {
	ID        string    `json:"id"`
	Body      string    `json:"body"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	User      User      `json:"user"`
}

// IssueUpdate holds the editable issue fields; nil fields are left alone.
type IssueUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}
