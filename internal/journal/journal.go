// Package journal keeps a local SQLite record of import runs and of every
// issue they created, so a run can be audited or cleaned up afterwards.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/steveyegge/easyimport/internal/importer"
)

// Run status values.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusDryRun  = "dry-run"
)

const (
	// Fixed width so timestamps sort as text.
	timeLayout     = "2006-01-02T15:04:05.000000000Z07:00"
	defaultHistory = 20
)

// ErrRunNotFound is returned when no run matches an id or id prefix.
var ErrRunNotFound = errors.New("run not found")

// Journal wraps the journal database.
type Journal struct {
	conn *sql.DB
	now  func() time.Time
}

// RunInfo describes a run when it starts.
type RunInfo struct {
	Input   string
	BaseURL string
	DryRun  bool
}

// RunSummary is a row of the runs table.
type RunSummary struct {
	ID         string         `json:"id"`
	Input      string         `json:"input"`
	BaseURL    string         `json:"base_url"`
	DryRun     bool           `json:"dry_run"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
	Stats      importer.Stats `json:"stats"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"` // zero while running
}

// Open opens (creating if needed) the journal at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// One writer; keeps PRAGMAs applied to the only connection.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=500"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	conn.Exec("PRAGMA synchronous=NORMAL")

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version=%d", SchemaVersion)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set schema version: %w", err)
	}

	return &Journal{conn: conn, now: time.Now}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// StartRun inserts a running row and returns a handle that records created
// issues against it.
func (j *Journal) StartRun(ctx context.Context, info RunInfo) (*Run, error) {
	id := uuid.NewString()
	_, err := j.conn.ExecContext(ctx, `
		INSERT INTO runs (id, input, base_url, dry_run, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, info.Input, info.BaseURL, info.DryRun, StatusRunning, j.stamp())
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	return &Run{j: j, id: id, dryRun: info.DryRun}, nil
}

// RecentRuns returns the latest runs, newest first. limit <= 0 means 20.
func (j *Journal) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = defaultHistory
	}
	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, input, base_url, dry_run, status, error,
		       lines, created, reused, errors, warnings, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FindRun resolves a full run id or a unique prefix of one.
func (j *Journal) FindRun(ctx context.Context, idOrPrefix string) (RunSummary, error) {
	rows, err := j.conn.QueryContext(ctx, `
		SELECT id, input, base_url, dry_run, status, error,
		       lines, created, reused, errors, warnings, started_at, finished_at
		FROM runs
		WHERE id = ? OR id LIKE ? || '%'
		LIMIT 2
	`, idOrPrefix, idOrPrefix)
	if err != nil {
		return RunSummary{}, err
	}
	defer rows.Close()

	var found []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return RunSummary{}, err
		}
		found = append(found, r)
	}
	if err := rows.Err(); err != nil {
		return RunSummary{}, err
	}
	switch len(found) {
	case 0:
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return found[0], nil
	}
	for _, r := range found {
		if r.ID == idOrPrefix {
			return r, nil
		}
	}
	return RunSummary{}, fmt.Errorf("run id prefix %q is ambiguous", idOrPrefix)
}

// RunIssues returns the issues a run created, in creation order.
func (j *Journal) RunIssues(ctx context.Context, runID string) ([]importer.CreatedIssue, error) {
	rows, err := j.conn.QueryContext(ctx, `
		SELECT line, project_id, issue_id, parent_id, depth, subject
		FROM created_issues
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []importer.CreatedIssue
	for rows.Next() {
		var c importer.CreatedIssue
		if err := rows.Scan(&c.Line, &c.ProjectID, &c.IssueID, &c.ParentID, &c.Depth, &c.Subject); err != nil {
			return nil, err
		}
		issues = append(issues, c)
	}
	return issues, rows.Err()
}

func (j *Journal) stamp() string {
	return j.now().UTC().Format(timeLayout)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunSummary, error) {
	var r RunSummary
	var started, finished string
	err := s.Scan(&r.ID, &r.Input, &r.BaseURL, &r.DryRun, &r.Status, &r.Error,
		&r.Stats.Lines, &r.Stats.Created, &r.Stats.Reused, &r.Stats.Errors, &r.Stats.Warnings,
		&started, &finished)
	if err != nil {
		return r, err
	}
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return r, fmt.Errorf("parse started_at of run %s: %w", r.ID, err)
	}
	if finished != "" {
		if r.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return r, fmt.Errorf("parse finished_at of run %s: %w", r.ID, err)
		}
	}
	return r, nil
}
