package journal

// SchemaVersion is stored in PRAGMA user_version.
const SchemaVersion = 1

const schema = `
-- One row per import run
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    input TEXT NOT NULL DEFAULT '',
    base_url TEXT NOT NULL DEFAULT '',
    dry_run INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL DEFAULT 'running',
    error TEXT NOT NULL DEFAULT '',
    lines INTEGER NOT NULL DEFAULT 0,
    created INTEGER NOT NULL DEFAULT 0,
    reused INTEGER NOT NULL DEFAULT 0,
    errors INTEGER NOT NULL DEFAULT 0,
    warnings INTEGER NOT NULL DEFAULT 0,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL DEFAULT ''
);

-- Issues created by a run, in creation order
CREATE TABLE IF NOT EXISTS created_issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL,
    line INTEGER NOT NULL,
    project_id INTEGER NOT NULL,
    issue_id INTEGER NOT NULL,
    parent_id INTEGER NOT NULL DEFAULT 0,
    depth INTEGER NOT NULL,
    subject TEXT NOT NULL,
    created_at TEXT NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(id)
);

CREATE INDEX IF NOT EXISTS idx_created_issues_run ON created_issues(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
