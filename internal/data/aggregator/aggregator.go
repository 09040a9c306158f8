package aggregator

import (
	"iter"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/util"
)

// Aggregator folds raw activity records into bounded snapshots.
type Aggregator struct {
	clock           func() time.Time
	maxApplications int
	maxCategories   int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used for generatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) {
		a.clock = clock
	}
}

// WithLimits overrides the list caps. Non-positive values keep the defaults.
func WithLimits(maxApplications, maxCategories int) Option {
	return func(a *Aggregator) {
		if maxApplications > 0 {
			a.maxApplications = maxApplications
		}
		if maxCategories > 0 {
			a.maxCategories = maxCategories
		}
	}
}

// New creates an Aggregator with the default 25/15 caps.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		clock:           time.Now,
		maxApplications: model.MaxSnapshotApplications,
		maxCategories:   model.MaxSnapshotCategories,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Result holds the complete, untruncated outcome of a fold.
type Result struct {
	Records                      int
	TotalActivityDurationSeconds float64
	TotalPickups                 int
	TotalNotifications           int
	// Applications and Categories are sorted by duration descending.
	Applications []model.ApplicationBucket
	Categories   []model.CategoryBucket
}

type applicationAccumulator struct {
	key    string
	bucket model.ApplicationBucket
}

type categoryAccumulator struct {
	key    string
	bucket model.CategoryBucket
}

// Fold consumes every record of the sequence. It never stops early and has
// no failure path: an empty sequence yields an all-zero result.
func (a *Aggregator) Fold(records iter.Seq[model.ActivityRecord]) Result {
	applications := make(map[string]*applicationAccumulator)
	categories := make(map[string]*categoryAccumulator)
	var result Result

	for record := range records {
		result.Records++
		duration := sanitizeDuration(record.DurationSeconds)
		pickups := max(record.Pickups, 0)
		notifications := max(record.Notifications, 0)

		result.TotalActivityDurationSeconds += duration

		appKey := record.ApplicationKey()
		app, exists := applications[appKey]
		if !exists {
			app = &applicationAccumulator{key: appKey}
			applications[appKey] = app
		}
		if record.Application != nil {
			app.bucket.BundleIdentifier = preferString(app.bucket.BundleIdentifier, record.Application.BundleIdentifier)
			app.bucket.LocalizedDisplayName = preferString(app.bucket.LocalizedDisplayName, record.Application.LocalizedDisplayName)
		}
		app.bucket.DurationSeconds += duration
		app.bucket.Pickups += pickups
		app.bucket.Notifications += notifications

		categoryKey := record.CategoryKey()
		category, exists := categories[categoryKey]
		if !exists {
			category = &categoryAccumulator{key: categoryKey}
			categories[categoryKey] = category
		}
		if record.Category != nil {
			category.bucket.LocalizedDisplayName = preferString(category.bucket.LocalizedDisplayName, record.Category.LocalizedDisplayName)
		}
		category.bucket.DurationSeconds += duration
	}

	// Totals cover every application, not just the ones that survive the cap.
	appList := make([]*applicationAccumulator, 0, len(applications))
	for _, app := range applications {
		result.TotalPickups += app.bucket.Pickups
		result.TotalNotifications += app.bucket.Notifications
		appList = append(appList, app)
	}
	sort.Slice(appList, func(i, j int) bool {
		if appList[i].bucket.DurationSeconds != appList[j].bucket.DurationSeconds {
			return appList[i].bucket.DurationSeconds > appList[j].bucket.DurationSeconds
		}
		return appList[i].key < appList[j].key
	})
	result.Applications = make([]model.ApplicationBucket, len(appList))
	for i, app := range appList {
		result.Applications[i] = app.bucket
	}

	categoryList := make([]*categoryAccumulator, 0, len(categories))
	for _, category := range categories {
		categoryList = append(categoryList, category)
	}
	sort.Slice(categoryList, func(i, j int) bool {
		if categoryList[i].bucket.DurationSeconds != categoryList[j].bucket.DurationSeconds {
			return categoryList[i].bucket.DurationSeconds > categoryList[j].bucket.DurationSeconds
		}
		return categoryList[i].key < categoryList[j].key
	})
	result.Categories = make([]model.CategoryBucket, len(categoryList))
	for i, category := range categoryList {
		result.Categories[i] = category.bucket
	}

	return result
}

// Snapshot turns a fold result into a snapshot for the given view-state:
// lists are capped, generatedAt is stamped and range, segmentation and context
// are copied from state.
func (a *Aggregator) Snapshot(result Result, state model.ViewState) *model.Snapshot {
	applications := result.Applications[:min(len(result.Applications), a.maxApplications)]
	categories := result.Categories[:min(len(result.Categories), a.maxCategories)]

	return &model.Snapshot{
		Version:                      model.SnapshotVersion,
		Context:                      state.Context,
		GeneratedAt:                  util.FormatISO8601(a.clock()),
		From:                         state.From,
		To:                           state.To,
		Segmentation:                 state.Segmentation,
		TotalActivityDurationSeconds: result.TotalActivityDurationSeconds,
		TotalPickups:                 result.TotalPickups,
		TotalNotifications:           result.TotalNotifications,
		Applications:                 slices.Clone(applications),
		Categories:                   slices.Clone(categories),
	}
}

// Aggregate folds records and builds the snapshot in one step.
func (a *Aggregator) Aggregate(records iter.Seq[model.ActivityRecord], state model.ViewState) *model.Snapshot {
	return a.Snapshot(a.Fold(records), state)
}

// AggregateSlice is Aggregate over an in-memory slice.
func (a *Aggregator) AggregateSlice(records []model.ActivityRecord, state model.ViewState) *model.Snapshot {
	return a.Aggregate(slices.Values(records), state)
}

func sanitizeDuration(seconds float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0
	}
	return seconds
}

// preferString keeps identity fields independent of record order: the
// lexically smallest non-empty value wins.
func preferString(current, candidate *string) *string {
	if candidate == nil || *candidate == "" {
		return current
	}
	if current == nil || *candidate < *current {
		value := *candidate
		return &value
	}
	return current
}
