package importer

import (
	"context"
	"strings"

	"github.com/steveyegge/easyimport/internal/redmine"
)

// fakeTracker is an in-memory Tracker. Created issues become visible to
// later ListIssues calls, like the real server.
type fakeTracker struct {
	projects []redmine.Project
	total    int
	issues   map[int][]redmine.Issue
	nextID   int

	creates          []redmine.NewIssue
	listProjectCalls int
	listIssueCalls   int

	// createErr returns an error for a subject, or nil to succeed.
	createErr func(subject string) error
	// listErr fails every ListProjects / ListIssues call when set.
	listErr error
}

func newFakeTracker(projects ...redmine.Project) *fakeTracker {
	return &fakeTracker{
		projects: projects,
		issues:   make(map[int][]redmine.Issue),
		nextID:   100,
	}
}

func (f *fakeTracker) withIssues(projectID int, issues ...redmine.Issue) *fakeTracker {
	f.issues[projectID] = append(f.issues[projectID], issues...)
	return f
}

func (f *fakeTracker) ListProjects(context.Context) (*redmine.ProjectList, error) {
	f.listProjectCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	total := f.total
	if total == 0 {
		total = len(f.projects)
	}
	return &redmine.ProjectList{Projects: f.projects, TotalCount: total}, nil
}

func (f *fakeTracker) ListIssues(_ context.Context, projectID int) (*redmine.IssueList, error) {
	f.listIssueCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	issues := append([]redmine.Issue(nil), f.issues[projectID]...)
	return &redmine.IssueList{Issues: issues, TotalCount: len(issues)}, nil
}

func (f *fakeTracker) CreateIssue(_ context.Context, issue *redmine.NewIssue) (*redmine.Issue, error) {
	if f.createErr != nil {
		if err := f.createErr(issue.Subject); err != nil {
			return nil, err
		}
	}
	f.creates = append(f.creates, *issue)
	f.nextID++
	created := redmine.Issue{ID: f.nextID, Subject: issue.Subject, Project: &redmine.Ref{ID: issue.ProjectID}}
	if issue.ParentIssueID != nil {
		created.Parent = &redmine.Ref{ID: *issue.ParentIssueID}
	}
	f.issues[issue.ProjectID] = append(f.issues[issue.ProjectID], created)
	return &created, nil
}

// created returns the create request for subject, or nil.
func (f *fakeTracker) created(subject string) *redmine.NewIssue {
	for i := range f.creates {
		if f.creates[i].Subject == subject {
			return &f.creates[i]
		}
	}
	return nil
}

// idOf returns the remote id assigned to subject, or 0.
func (f *fakeTracker) idOf(projectID int, subject string) int {
	for _, is := range f.issues[projectID] {
		if is.Subject == subject {
			return is.ID
		}
	}
	return 0
}

func outlineOf(lines ...string) *strings.Reader {
	return strings.NewReader(strings.Join(lines, "\n") + "\n")
}

type memRecorder struct {
	got []CreatedIssue
	err error
}

func (m *memRecorder) RecordCreated(_ context.Context, issue CreatedIssue) error {
	m.got = append(m.got, issue)
	return m.err
}
