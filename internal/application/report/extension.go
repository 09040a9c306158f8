package report

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/data/aggregator"
	"github.com/penwyp/go-activity-report/internal/data/store"
	"github.com/penwyp/go-activity-report/internal/metrics"
	"github.com/penwyp/go-activity-report/internal/util"
)

// Configuration is what the report scene renders after a pass.
type Configuration struct {
	TotalActivityLabel string
	GeneratedAtLabel   string
	RunID              string
	Snapshot           *model.Snapshot
}

// Extension runs the report-extension pass for one report context: it reads
// the view-state, folds the records the host supplies and writes the
// resulting snapshot.
type Extension struct {
	store         *store.StateStore
	reportContext string
	clock         func() time.Time
	aggregatorOps []aggregator.Option
	metrics       *metrics.Metrics
	logger        util.LoggerInterface
}

type ExtensionOption func(*Extension)

// WithReportContext selects the context the pass writes. Defaults to the
// store's default context.
func WithReportContext(reportContext string) ExtensionOption {
	return func(e *Extension) {
		e.reportContext = reportContext
	}
}

func WithExtensionClock(clock func() time.Time) ExtensionOption {
	return func(e *Extension) {
		if clock != nil {
			e.clock = clock
		}
	}
}

func WithExtensionMetrics(m *metrics.Metrics) ExtensionOption {
	return func(e *Extension) {
		e.metrics = m
	}
}

// WithAggregatorOptions passes extra options such as list limits to the
// aggregator.
func WithAggregatorOptions(opts ...aggregator.Option) ExtensionOption {
	return func(e *Extension) {
		e.aggregatorOps = append(e.aggregatorOps, opts...)
	}
}

func NewExtension(stateStore *store.StateStore, opts ...ExtensionOption) *Extension {
	e := &Extension{
		store:  stateStore,
		clock:  func() time.Time { return util.GetTimeProvider().Now() },
		logger: util.Log(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.reportContext = stateStore.Sanitize(e.reportContext)
	return e
}

// ReportContext returns the sanitized context this extension writes.
func (e *Extension) ReportContext() string {
	return e.reportContext
}

// MakeConfiguration folds records into a snapshot for the current view-state
// and persists it. A failed write is logged and returned alongside a usable
// configuration.
func (e *Extension) MakeConfiguration(ctx context.Context, records iter.Seq[model.ActivityRecord]) (Configuration, error) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, util.RunIDKey, runID)
	logger := e.logger.WithContext(ctx).With(util.F("context", e.reportContext))

	state := e.store.GetViewState(ctx, e.reportContext)
	logger.Debug("Aggregation started",
		util.F("from", state.From), util.F("to", state.To), util.F("segmentation", state.Segmentation))

	agg := aggregator.New(append([]aggregator.Option{aggregator.WithClock(e.clock)}, e.aggregatorOps...)...)

	timer := e.metrics.TrackAggregation()
	result := agg.Fold(records)
	snapshot := agg.Snapshot(result, state)
	timer.ObserveDuration()

	err := e.store.SetSnapshot(ctx, snapshot)
	e.metrics.TrackRun(e.reportContext, result.Records, len(snapshot.Applications), err)
	if err != nil {
		logger.Error("Failed to write snapshot", util.F("error", err.Error()))
	} else {
		logger.Info("Snapshot written",
			util.F("records", result.Records),
			util.F("applications", len(snapshot.Applications)),
			util.F("categories", len(snapshot.Categories)),
			util.F("total_seconds", snapshot.TotalActivityDurationSeconds))
	}

	return Configuration{
		TotalActivityLabel: util.FormatActivityDuration(snapshot.TotalActivityDurationSeconds),
		GeneratedAtLabel:   util.FormatGeneratedAt(e.clock()),
		RunID:              runID,
		Snapshot:           snapshot,
	}, err
}
