package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/easyimport/internal/importer"
	"github.com/steveyegge/easyimport/internal/redmine"
)

const trackerScopeName = "github.com/steveyegge/easyimport/tracker"

// InstrumentedTracker wraps importer.Tracker with OTel tracing and metrics.
// Every call gets a span and is counted in easyimport.tracker.* metrics.
type InstrumentedTracker struct {
	inner   importer.Tracker
	tracer  trace.Tracer
	ops     metric.Int64Counter
	dur     metric.Float64Histogram
	errs    metric.Int64Counter
	created metric.Int64Counter
}

// WrapTracker returns t decorated with OTel instrumentation.
// When telemetry is disabled, t is returned as-is.
func WrapTracker(t importer.Tracker) importer.Tracker {
	if !Enabled() {
		return t
	}
	return newInstrumentedTracker(t)
}

func newInstrumentedTracker(t importer.Tracker) *InstrumentedTracker {
	m := Meter(trackerScopeName)
	ops, _ := m.Int64Counter("easyimport.tracker.operations",
		metric.WithDescription("Total tracker API calls"),
	)
	dur, _ := m.Float64Histogram("easyimport.tracker.operation.duration",
		metric.WithDescription("Tracker API call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("easyimport.tracker.errors",
		metric.WithDescription("Total failed tracker API calls"),
	)
	created, _ := m.Int64Counter("easyimport.issues.created",
		metric.WithDescription("Issues created on the tracker"),
	)
	return &InstrumentedTracker{
		inner:   t,
		tracer:  Tracer(trackerScopeName),
		ops:     ops,
		dur:     dur,
		errs:    errs,
		created: created,
	}
}

func (t *InstrumentedTracker) op(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span, time.Time) {
	all := append([]attribute.KeyValue{attribute.String("tracker.operation", name)}, attrs...)
	ctx, span := t.tracer.Start(ctx, "tracker."+name,
		trace.WithAttributes(all...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	t.ops.Add(ctx, 1, metric.WithAttributes(all...))
	return ctx, span, time.Now()
}

func (t *InstrumentedTracker) done(ctx context.Context, span trace.Span, start time.Time, err error, attrs ...attribute.KeyValue) {
	ms := float64(time.Since(start).Milliseconds())
	t.dur.Record(ctx, ms, metric.WithAttributes(attrs...))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		t.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	span.End()
}

func (t *InstrumentedTracker) ListProjects(ctx context.Context) (*redmine.ProjectList, error) {
	ctx, span, start := t.op(ctx, "ListProjects")
	v, err := t.inner.ListProjects(ctx)
	if v != nil {
		span.SetAttributes(attribute.Int("redmine.project.count", len(v.Projects)))
	}
	t.done(ctx, span, start, err)
	return v, err
}

func (t *InstrumentedTracker) ListIssues(ctx context.Context, projectID int) (*redmine.IssueList, error) {
	attrs := []attribute.KeyValue{attribute.Int("redmine.project.id", projectID)}
	ctx, span, start := t.op(ctx, "ListIssues", attrs...)
	v, err := t.inner.ListIssues(ctx, projectID)
	if v != nil {
		span.SetAttributes(attribute.Int("redmine.issue.count", len(v.Issues)))
	}
	t.done(ctx, span, start, err, attrs...)
	return v, err
}

func (t *InstrumentedTracker) CreateIssue(ctx context.Context, issue *redmine.NewIssue) (*redmine.Issue, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("redmine.project.id", issue.ProjectID),
		attribute.Bool("redmine.issue.has_parent", issue.ParentIssueID != nil),
	}
	ctx, span, start := t.op(ctx, "CreateIssue", attrs...)
	v, err := t.inner.CreateIssue(ctx, issue)
	if err == nil && v != nil {
		span.SetAttributes(attribute.Int("redmine.issue.id", v.ID))
		t.created.Add(ctx, 1, metric.WithAttributes(attrs[0]))
	}
	t.done(ctx, span, start, err, attrs...)
	return v, err
}

// RecordRun publishes the line-level outcome of a finished import.
func RecordRun(ctx context.Context, stats importer.Stats, dryRun bool) {
	if !Enabled() {
		return
	}
	m := Meter("")
	attrs := metric.WithAttributes(attribute.Bool("easyimport.dry_run", dryRun))
	lines, _ := m.Int64Counter("easyimport.lines",
		metric.WithDescription("Outline lines processed"),
	)
	errs, _ := m.Int64Counter("easyimport.lines.errors",
		metric.WithDescription("Outline lines that failed"),
	)
	warns, _ := m.Int64Counter("easyimport.lines.warnings",
		metric.WithDescription("Warnings raised while importing"),
	)
	lines.Add(ctx, int64(stats.Lines), attrs)
	errs.Add(ctx, int64(stats.Errors), attrs)
	warns.Add(ctx, int64(stats.Warnings), attrs)
}
