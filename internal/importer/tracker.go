package importer

import (
	"context"

	"github.com/steveyegge/easyimport/internal/redmine"
)

// Tracker is the remote capability the importer needs. *redmine.Client
// implements it; tests use an in-memory fake.
type Tracker interface {
	// ListProjects returns every project visible to the caller.
	ListProjects(ctx context.Context) (*redmine.ProjectList, error)

	// ListIssues returns the existing issues of one project.
	ListIssues(ctx context.Context, projectID int) (*redmine.IssueList, error)

	// CreateIssue creates one issue and returns it with its remote id set.
	CreateIssue(ctx context.Context, issue *redmine.NewIssue) (*redmine.Issue, error)
}

// CreatedIssue describes one issue materialized by a run.
type CreatedIssue struct {
	Line      int    `json:"line"`
	ProjectID int    `json:"project_id"`
	IssueID   int    `json:"issue_id"`
	ParentID  int    `json:"parent_id,omitempty"` // 0 when the issue has no parent
	Depth     int    `json:"depth"`
	Subject   string `json:"subject"`
}

// Recorder receives every created issue, e.g. to persist a run journal.
type Recorder interface {
	RecordCreated(ctx context.Context, issue CreatedIssue) error
}
