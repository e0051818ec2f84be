package importer

import (
	"context"

	"github.com/steveyegge/easyimport/internal/redmine"
)

// DryRunTracker reads from the wrapped tracker but never writes to it.
// Creates are answered with synthetic negative ids so the hierarchy logic
// runs end to end; later reads of the same project include them.
type DryRunTracker struct {
	inner   Tracker
	nextID  int
	created map[int][]redmine.Issue // project id -> synthetic issues
}

// NewDryRunTracker wraps t.
func NewDryRunTracker(t Tracker) *DryRunTracker {
	return &DryRunTracker{
		inner:   t,
		created: make(map[int][]redmine.Issue),
	}
}

func (d *DryRunTracker) ListProjects(ctx context.Context) (*redmine.ProjectList, error) {
	return d.inner.ListProjects(ctx)
}

func (d *DryRunTracker) ListIssues(ctx context.Context, projectID int) (*redmine.IssueList, error) {
	list, err := d.inner.ListIssues(ctx, projectID)
	if err != nil {
		return nil, err
	}
	synthetic := d.created[projectID]
	if len(synthetic) == 0 {
		return list, nil
	}
	merged := &redmine.IssueList{
		Issues:     make([]redmine.Issue, 0, len(list.Issues)+len(synthetic)),
		TotalCount: list.TotalCount + len(synthetic),
		Offset:     list.Offset,
		Limit:      list.Limit,
	}
	merged.Issues = append(merged.Issues, list.Issues...)
	merged.Issues = append(merged.Issues, synthetic...)
	return merged, nil
}

func (d *DryRunTracker) CreateIssue(_ context.Context, issue *redmine.NewIssue) (*redmine.Issue, error) {
	d.nextID--
	created := redmine.Issue{
		ID:      d.nextID,
		Subject: issue.Subject,
		Project: &redmine.Ref{ID: issue.ProjectID},
	}
	if issue.ParentIssueID != nil {
		created.Parent = &redmine.Ref{ID: *issue.ParentIssueID}
	}
	d.created[issue.ProjectID] = append(d.created[issue.ProjectID], created)
	return &created, nil
}

// Planned returns the number of issues that would have been created.
func (d *DryRunTracker) Planned() int {
	return -d.nextID
}
