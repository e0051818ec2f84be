package journal

import (
	"context"
	"fmt"

	"github.com/steveyegge/easyimport/internal/importer"
)

// Run records the issues of one import. It implements importer.Recorder.
type Run struct {
	j      *Journal
	id     string
	dryRun bool
}

var _ importer.Recorder = (*Run)(nil)

// ID returns the run's uuid.
func (r *Run) ID() string {
	return r.id
}

// RecordCreated appends one created issue.
func (r *Run) RecordCreated(ctx context.Context, c importer.CreatedIssue) error {
	_, err := r.j.conn.ExecContext(ctx, `
		INSERT INTO created_issues (run_id, line, project_id, issue_id, parent_id, depth, subject, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.id, c.Line, c.ProjectID, c.IssueID, c.ParentID, c.Depth, c.Subject, r.j.stamp())
	if err != nil {
		return fmt.Errorf("record issue %d: %w", c.IssueID, err)
	}
	return nil
}

// Finish stores the final counters. runErr is the error that aborted the
// run, if any.
func (r *Run) Finish(ctx context.Context, stats importer.Stats, runErr error) error {
	status := StatusOK
	msg := ""
	switch {
	case runErr != nil:
		status = StatusFailed
		msg = runErr.Error()
	case r.dryRun:
		status = StatusDryRun
	}

	_, err := r.j.conn.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?, lines = ?, created = ?, reused = ?, errors = ?, warnings = ?, finished_at = ?
		WHERE id = ?
	`, status, msg, stats.Lines, stats.Created, stats.Reused, stats.Errors, stats.Warnings, r.j.stamp(), r.id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", r.id, err)
	}
	return nil
}
