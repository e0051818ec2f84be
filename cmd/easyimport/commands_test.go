package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/easyimport/internal/config"
	"github.com/steveyegge/easyimport/internal/importer"
	"github.com/steveyegge/easyimport/internal/journal"
)

func TestPrintProjects(t *testing.T) {
	idx := importer.ProjectIndex{
		IDs:   []int{2, 1},
		Names: map[int]string{1: "Alpha", 2: "Zeta"},
		Total: 2,
	}

	var buf bytes.Buffer
	require.NoError(t, printProjects(&buf, idx, true, true))
	var rows []projectRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	assert.Equal(t, []projectRow{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Zeta"}}, rows)

	buf.Reset()
	idx.Truncated = true
	idx.Total = 150
	require.NoError(t, printProjects(&buf, idx, false, false))
	assert.Contains(t, buf.String(), "Zeta")
	assert.Contains(t, buf.String(), "of 150 projects")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "***", maskSecret("abc"))
	assert.Equal(t, "******cdef", maskSecret("0123abcdef"))
}

func TestRenderConfig(t *testing.T) {
	t.Setenv("EASYIMPORT_API_KEY", "")
	t.Setenv("EASYIMPORT_API_URL", "https://env.example.com/")
	cfg := config.Defaults()
	cfg.API = config.APISettings{URL: "https://env.example.com/", Key: "0123456789"}

	out := renderConfig("/tmp/x", cfg)
	assert.Contains(t, out, "******6789")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "$EASYIMPORT_API_URL")
	assert.Contains(t, out, "import.retry_max_elapsed")
}

func TestPrintRuns(t *testing.T) {
	ctx := context.Background()
	j, err := journal.Open(filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer j.Close()

	var buf bytes.Buffer
	require.NoError(t, printRuns(ctx, &buf, j, 10, false))
	assert.Contains(t, buf.String(), "No runs recorded yet")

	run, err := j.StartRun(ctx, journal.RunInfo{Input: "plan.txt"})
	require.NoError(t, err)
	require.NoError(t, run.RecordCreated(ctx, importer.CreatedIssue{Line: 2, ProjectID: 1, IssueID: 77, Depth: 1, Subject: "Design"}))
	require.NoError(t, run.Finish(ctx, importer.Stats{Lines: 2, Created: 1}, nil))

	buf.Reset()
	require.NoError(t, printRuns(ctx, &buf, j, 10, false))
	assert.Contains(t, buf.String(), run.ID()[:8])
	assert.Contains(t, buf.String(), "plan.txt")

	buf.Reset()
	require.NoError(t, printRun(ctx, &buf, j, run.ID()[:8], false))
	assert.Contains(t, buf.String(), "#77")
	assert.Contains(t, buf.String(), "Design")

	buf.Reset()
	require.NoError(t, printRun(ctx, &buf, j, run.ID(), true))
	var decoded struct {
		Run    journal.RunSummary      `json:"run"`
		Issues []importer.CreatedIssue `json:"issues"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, run.ID(), decoded.Run.ID)
	require.Len(t, decoded.Issues, 1)
	assert.Equal(t, 77, decoded.Issues[0].IssueID)
}
