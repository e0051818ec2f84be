// Package importer turns an outline file into issues on a remote tracker.
//
// The Importer reads the outline line by line and keeps the state needed to
// infer parents from indentation: the active project, a stack of ancestor
// issue ids (one per open depth level) and the id of the last issue
// created. Every line is fully resolved, including its remote calls, before
// the next one is read.
//
// Recoverable problems (unknown project, rejected parent tag, out-of-range
// attribute, issue rejected by the tracker) are logged with the line number,
// counted in Stats and processing continues. Any other tracker failure is
// returned and aborts the run.
package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/steveyegge/easyimport/internal/outline"
	"github.com/steveyegge/easyimport/internal/redmine"
)

// maxLineSize bounds a single outline line.
const maxLineSize = 1024 * 1024

// Options configures an Importer.
type Options struct {
	// Dedupe reuses an existing issue with the same subject (case-insensitive)
	// instead of creating a new one. Off by default: every issue line creates.
	Dedupe bool

	// Logger receives one entry per line. Defaults to a discarding logger.
	Logger *slog.Logger

	// Recorder, when set, is told about every created issue.
	Recorder Recorder
}

// Importer holds the state of one import run.
type Importer struct {
	tracker  Tracker
	opts     Options
	log      *slog.Logger
	projects ProjectIndex
	loaded   bool

	project *projectContext

	// stack holds one ancestor id per open depth level; stack[d-1] is the
	// parent of an issue at depth d. Zero means "no parent".
	stack       []int
	lastDepth   int
	lastIssueID int

	stats Stats
}

// New returns an Importer that talks to t.
func New(t Tracker, opts Options) *Importer {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Importer{
		tracker: t,
		opts:    opts,
		log:     log,
	}
}

// Stats returns the counters accumulated so far.
func (im *Importer) Stats() Stats {
	return im.stats
}

// LoadProjects takes the one-per-run snapshot of remote projects. Run calls
// it automatically; it is exported for callers driving ProcessLine directly.
func (im *Importer) LoadProjects(ctx context.Context) error {
	idx, err := ListProjects(ctx, im.tracker)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	if idx.Truncated {
		im.log.Warn("Project list is incomplete; only the first page was loaded",
			"loaded", idx.Len(), "total", idx.Total)
	}
	im.projects = idx
	im.loaded = true
	return nil
}

// Run imports every line of r. The returned error is non-nil only for
// failures that abort the run (reading r, tracker transport errors).
func (im *Importer) Run(ctx context.Context, r io.Reader) (Stats, error) {
	if !im.loaded {
		if err := im.LoadProjects(ctx); err != nil {
			return im.stats, err
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	number := 0
	for scanner.Scan() {
		number++
		if err := im.ProcessLine(ctx, number, scanner.Text()); err != nil {
			return im.stats, err
		}
	}
	if err := scanner.Err(); err != nil {
		return im.stats, fmt.Errorf("read outline after line %d: %w", number, err)
	}

	im.log.Info("Finished processing import file",
		"created", im.stats.Created, "errors", im.stats.Errors, "warnings", im.stats.Warnings)
	return im.stats, nil
}

// ProcessLine handles one physical line. Only unrecoverable failures are
// returned; everything else is logged and counted.
func (im *Importer) ProcessLine(ctx context.Context, number int, raw string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	im.stats.Lines++

	line := outline.Classify(number, raw)
	log := im.log.With("line", number)

	switch line.Kind {
	case outline.KindBlank:
		im.stats.Skipped++
		log.Info("Ignoring blank line")
		return nil
	case outline.KindComment:
		im.stats.Skipped++
		log.Info("Ignoring commented-out line")
		return nil
	case outline.KindProject:
		im.activateProject(log, line)
		return nil
	}
	return im.processIssue(ctx, log, line)
}

// activateProject switches the project context. The hierarchy is reset
// whether or not the name resolves, so ids never leak across projects.
func (im *Importer) activateProject(log *slog.Logger, line outline.Line) {
	im.project = nil
	im.stack = im.stack[:0]
	im.lastDepth = 0
	im.lastIssueID = 0

	id, err := im.projects.FindByName(line.Text)
	if err != nil {
		im.errorf(log, "Invalid project name, cannot create subitems", "project", line.Text)
		return
	}
	im.project = newProjectContext(id, line.Text)
	im.stats.Projects++
	log.Info("Loaded project", "project", line.Text, "project_id", id)
}

func (im *Importer) processIssue(ctx context.Context, log *slog.Logger, line outline.Line) error {
	if im.project == nil {
		im.errorf(log, "No valid project, could not add issue", "subject", line.Text)
		return nil
	}

	for _, w := range line.Warnings {
		im.warnf(log, "Invalid attribute value", "subject", line.Text, "detail", w.String())
	}
	if line.Text == "" {
		im.errorf(log, "Issue line has no subject, skipping")
		return nil
	}

	depth := im.enterDepth(log, line.Depth)
	attrs := line.Attrs

	if attrs.ParentIssueID != nil {
		// The marker count decides, not the clamped depth.
		ok, err := im.validateExplicitParent(ctx, log, line.Depth, *attrs.ParentIssueID)
		if err != nil {
			return err
		}
		if !ok {
			attrs.ParentIssueID = nil
		}
	}

	if im.opts.Dedupe {
		existing, err := im.findExisting(ctx, line.Text)
		if err != nil {
			return err
		}
		if existing != 0 {
			im.lastIssueID = existing
			im.stats.Reused++
			log.Info("Loaded existing issue", "issue_id", existing, "subject", line.Text)
			if !attrs.IsZero() {
				im.warnf(log, "Existing issue reused, attribute tags on this line were not applied",
					"issue_id", existing, "subject", line.Text)
			}
			return nil
		}
	}

	parentID := im.structuralParent(log, depth)
	if attrs.ParentIssueID != nil {
		parentID = *attrs.ParentIssueID
	}

	return im.create(ctx, log, line, depth, parentID, attrs)
}

// enterDepth updates the hierarchy stack for an issue at depth and returns
// the effective depth. Afterwards len(stack) == lastDepth == depth.
func (im *Importer) enterDepth(log *slog.Logger, depth int) int {
	if depth > im.lastDepth+1 {
		im.warnf(log, "Depth skips a level, treating as one level deeper than the previous issue",
			"depth", depth, "previous_depth", im.lastDepth, "effective_depth", im.lastDepth+1)
		depth = im.lastDepth + 1
	}

	switch {
	case depth > im.lastDepth:
		im.stack = append(im.stack, im.lastIssueID)
	case depth < im.lastDepth:
		im.stack = im.stack[:depth]
	}
	im.lastDepth = depth
	return depth
}

// structuralParent returns the parent implied by indentation, or 0.
func (im *Importer) structuralParent(log *slog.Logger, depth int) int {
	if len(im.stack) == 0 {
		return 0
	}
	parent := im.stack[len(im.stack)-1]
	if parent == 0 && depth > 1 {
		im.warnf(log, "Parent issue was not created, creating issue without parent", "depth", depth)
	}
	return parent
}

// validateExplicitParent decides whether a ^= tag survives. Explicit parents
// are only allowed on lines with exactly one depth marker; deeper levels
// take their parent from the outline structure.
func (im *Importer) validateExplicitParent(ctx context.Context, log *slog.Logger, depth, parentID int) (bool, error) {
	if depth != 1 {
		im.errorf(log, "Explicit parent is only allowed on top-level issues, ignoring it",
			"parent_issue_id", parentID, "depth", depth)
		return false, nil
	}

	im.project.invalidate()
	if err := im.ensureIssues(ctx); err != nil {
		return false, err
	}
	if !im.project.has(parentID) {
		im.errorf(log, "Explicit parent does not exist in project, ignoring it",
			"parent_issue_id", parentID, "project_id", im.project.id)
		return false, nil
	}
	return true, nil
}

func (im *Importer) findExisting(ctx context.Context, subject string) (int, error) {
	if err := im.ensureIssues(ctx); err != nil {
		return 0, err
	}
	return im.project.findBySubject(subject), nil
}

// ensureIssues fills the project issue cache if it is not loaded.
func (im *Importer) ensureIssues(ctx context.Context) error {
	if im.project.loaded {
		return nil
	}
	list, err := im.tracker.ListIssues(ctx, im.project.id)
	if err != nil {
		return fmt.Errorf("load issues of project %q: %w", im.project.name, err)
	}
	if list.TotalCount > len(list.Issues) {
		im.log.Warn("Issue list is incomplete; only the first page was loaded",
			"project_id", im.project.id, "loaded", len(list.Issues), "total", list.TotalCount)
	}
	im.project.fill(list.Issues)
	return nil
}

func (im *Importer) create(ctx context.Context, log *slog.Logger, line outline.Line, depth, parentID int, attrs outline.Attributes) error {
	req := &redmine.NewIssue{
		ProjectID:    im.project.id,
		Subject:      line.Text,
		AssignedToID: attrs.AssignedToID,
		TrackerID:    attrs.TrackerID,
		StatusID:     attrs.StatusID,
		CategoryID:   attrs.CategoryID,
		PriorityID:   attrs.PriorityID,
		DoneRatio:    attrs.DoneRatio,
	}
	if parentID != 0 {
		req.ParentIssueID = &parentID
	}

	created, err := im.tracker.CreateIssue(ctx, req)
	switch {
	case errors.Is(err, redmine.ErrValidation):
		// The tracker refused this payload (unknown tracker id, closed
		// parent...). Children will be created without a parent.
		im.lastIssueID = 0
		im.errorf(log, "Could not create issue", "subject", line.Text, "error", err)
		return nil
	case err != nil:
		return fmt.Errorf("line %d: %w", line.Number, err)
	case created == nil || created.ID == 0:
		im.lastIssueID = 0
		im.errorf(log, "Could not create issue, tracker returned no id", "subject", line.Text)
		return nil
	}

	im.lastIssueID = created.ID
	im.project.remember(created.ID, line.Text)
	im.stats.Created++

	args := []any{"issue_id", created.ID, "subject", line.Text, "depth", depth}
	if parentID != 0 {
		args = append(args, "parent_issue_id", parentID)
	}
	log.Info("Created issue", args...)

	if im.opts.Recorder != nil {
		err := im.opts.Recorder.RecordCreated(ctx, CreatedIssue{
			Line:      line.Number,
			ProjectID: im.project.id,
			IssueID:   created.ID,
			ParentID:  parentID,
			Depth:     depth,
			Subject:   line.Text,
		})
		if err != nil {
			im.warnf(log, "Could not record created issue in journal", "issue_id", created.ID, "error", err)
		}
	}
	return nil
}

func (im *Importer) errorf(log *slog.Logger, msg string, args ...any) {
	im.stats.Errors++
	log.Error(msg, args...)
}

func (im *Importer) warnf(log *slog.Logger, msg string, args ...any) {
	im.stats.Warnings++
	log.Warn(msg, args...)
}
