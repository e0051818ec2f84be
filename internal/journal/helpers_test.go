package journal

import (
	"context"
	"strings"

	"github.com/steveyegge/easyimport/internal/redmine"
)

type oneProjectTracker struct {
	next int
}

func (o *oneProjectTracker) ListProjects(context.Context) (*redmine.ProjectList, error) {
	return &redmine.ProjectList{Projects: []redmine.Project{{ID: 1, Name: "Alpha"}}, TotalCount: 1}, nil
}

func (o *oneProjectTracker) ListIssues(context.Context, int) (*redmine.IssueList, error) {
	return &redmine.IssueList{}, nil
}

func (o *oneProjectTracker) CreateIssue(_ context.Context, issue *redmine.NewIssue) (*redmine.Issue, error) {
	o.next++
	return &redmine.Issue{ID: o.next, Subject: issue.Subject}, nil
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
