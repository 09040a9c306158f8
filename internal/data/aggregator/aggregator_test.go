package aggregator

import (
	"fmt"
	"iter"
	"math"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 2, 6, 14, 30, 0, 0, time.UTC)

func newTestAggregator(opts ...Option) *Aggregator {
	return New(append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
}

func appRecord(bundle string, duration float64, pickups, notifications int) model.ActivityRecord {
	return model.ActivityRecord{
		DurationSeconds: duration,
		Application:     &model.Application{BundleIdentifier: model.StringPtr(bundle)},
		Pickups:         pickups,
		Notifications:   notifications,
	}
}

func testViewState() model.ViewState {
	return model.ViewState{
		Context:      "totalActivity",
		From:         1000,
		To:           2000,
		Segmentation: model.SegmentationHourly,
	}
}

func TestNewDefaults(t *testing.T) {
	a := New()
	assert.Equal(t, model.MaxSnapshotApplications, a.maxApplications)
	assert.Equal(t, model.MaxSnapshotCategories, a.maxCategories)

	a = New(WithLimits(0, -1))
	assert.Equal(t, model.MaxSnapshotApplications, a.maxApplications)
	assert.Equal(t, model.MaxSnapshotCategories, a.maxCategories)
}

func TestAggregateMergesSameBundle(t *testing.T) {
	records := []model.ActivityRecord{
		appRecord("com.app.a", 30, 2, 0),
		appRecord("com.app.a", 90, 3, 0),
	}

	snapshot := newTestAggregator().AggregateSlice(records, testViewState())

	require.Len(t, snapshot.Applications, 1)
	assert.Equal(t, model.ApplicationBucket{
		BundleIdentifier: model.StringPtr("com.app.a"),
		DurationSeconds:  120,
		Pickups:          5,
		Notifications:    0,
	}, snapshot.Applications[0])
	assert.Equal(t, 120.0, snapshot.TotalActivityDurationSeconds)
	assert.Equal(t, 5, snapshot.TotalPickups)
}

func TestAggregateStampsSnapshot(t *testing.T) {
	snapshot := newTestAggregator().AggregateSlice(nil, testViewState())

	assert.Equal(t, model.SnapshotVersion, snapshot.Version)
	assert.Equal(t, "2026-02-06T14:30:00Z", snapshot.GeneratedAt)
	assert.Equal(t, "totalActivity", snapshot.Context)
	assert.Equal(t, 1000.0, snapshot.From)
	assert.Equal(t, 2000.0, snapshot.To)
	assert.Equal(t, model.SegmentationHourly, snapshot.Segmentation)
}

func TestAggregateEmptyInputIsValid(t *testing.T) {
	snapshot := newTestAggregator().AggregateSlice([]model.ActivityRecord{}, testViewState())

	require.NotNil(t, snapshot)
	assert.Zero(t, snapshot.TotalActivityDurationSeconds)
	assert.Zero(t, snapshot.TotalPickups)
	assert.Zero(t, snapshot.TotalNotifications)
	assert.NotNil(t, snapshot.Applications)
	assert.Empty(t, snapshot.Applications)
	assert.NotNil(t, snapshot.Categories)
	assert.Empty(t, snapshot.Categories)
}

func TestAggregateIdentityFallbacks(t *testing.T) {
	records := []model.ActivityRecord{
		{DurationSeconds: 10},
		{DurationSeconds: 5, Application: &model.Application{}},
		{DurationSeconds: 20, Application: &model.Application{LocalizedDisplayName: model.StringPtr("Safari")}},
		{DurationSeconds: 7, Category: &model.Category{LocalizedDisplayName: model.StringPtr("Games")}},
	}

	result := newTestAggregator().Fold(slices.Values(records))

	require.Len(t, result.Applications, 2)
	// records with no identity share the sentinel bucket and are never dropped
	assert.Equal(t, 22.0, result.Applications[0].DurationSeconds)
	assert.Nil(t, result.Applications[0].BundleIdentifier)
	assert.Nil(t, result.Applications[0].LocalizedDisplayName)
	assert.Equal(t, model.UnknownApplication, result.Applications[0].DisplayName())

	assert.Equal(t, 20.0, result.Applications[1].DurationSeconds)
	assert.Nil(t, result.Applications[1].BundleIdentifier)
	require.NotNil(t, result.Applications[1].LocalizedDisplayName)
	assert.Equal(t, "Safari", *result.Applications[1].LocalizedDisplayName)

	require.Len(t, result.Categories, 2)
	assert.Nil(t, result.Categories[0].LocalizedDisplayName)
	assert.Equal(t, 35.0, result.Categories[0].DurationSeconds)
	require.NotNil(t, result.Categories[1].LocalizedDisplayName)
	assert.Equal(t, "Games", *result.Categories[1].LocalizedDisplayName)
	assert.Equal(t, 4, result.Records)
}

func TestAggregateSortsByDurationDescending(t *testing.T) {
	records := []model.ActivityRecord{
		appRecord("com.small", 10, 0, 0),
		appRecord("com.big", 300, 0, 0),
		appRecord("com.mid", 100, 0, 0),
	}

	snapshot := newTestAggregator().AggregateSlice(records, testViewState())

	names := make([]string, 0, len(snapshot.Applications))
	for _, app := range snapshot.Applications {
		names = append(names, *app.BundleIdentifier)
	}
	assert.Equal(t, []string{"com.big", "com.mid", "com.small"}, names)
}

func TestAggregateTruncationKeepsTotals(t *testing.T) {
	var records []model.ActivityRecord
	for i := 0; i < 40; i++ {
		record := appRecord(fmt.Sprintf("com.app.%02d", i), float64(i+1), 1, 2)
		record.Category = &model.Category{LocalizedDisplayName: model.StringPtr(fmt.Sprintf("cat-%02d", i))}
		records = append(records, record)
	}

	snapshot := newTestAggregator().AggregateSlice(records, testViewState())

	assert.Len(t, snapshot.Applications, model.MaxSnapshotApplications)
	assert.Len(t, snapshot.Categories, model.MaxSnapshotCategories)
	assert.Equal(t, 40, snapshot.TotalPickups)
	assert.Equal(t, 80, snapshot.TotalNotifications)
	assert.Equal(t, float64(40*41/2), snapshot.TotalActivityDurationSeconds)
	assert.Equal(t, 40.0, snapshot.Applications[0].DurationSeconds)
	assert.Equal(t, 16.0, snapshot.Applications[24].DurationSeconds)
	assert.Equal(t, 26.0, snapshot.Categories[14].DurationSeconds)
}

func TestAggregateCustomLimits(t *testing.T) {
	records := []model.ActivityRecord{
		appRecord("a", 3, 1, 0),
		appRecord("b", 2, 1, 0),
		appRecord("c", 1, 1, 0),
	}

	snapshot := newTestAggregator(WithLimits(2, 1)).AggregateSlice(records, testViewState())

	assert.Len(t, snapshot.Applications, 2)
	assert.Len(t, snapshot.Categories, 1)
	assert.Equal(t, 3, snapshot.TotalPickups)
}

func TestAggregateOrderIndependent(t *testing.T) {
	var records []model.ActivityRecord
	for i := 0; i < 60; i++ {
		record := appRecord(fmt.Sprintf("com.app.%d", i%30), float64((i*7)%13), i%4, i%3)
		record.Category = &model.Category{LocalizedDisplayName: model.StringPtr(fmt.Sprintf("cat-%d", i%20))}
		if i%5 == 0 {
			record.Application.LocalizedDisplayName = model.StringPtr(fmt.Sprintf("Name %d", i))
		}
		records = append(records, record)
	}

	a := newTestAggregator()
	expected := a.AggregateSlice(records, testViewState())

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := slices.Clone(records)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		assert.Equal(t, expected, a.AggregateSlice(shuffled, testViewState()))
	}
}

func TestAggregateSanitizesBadValues(t *testing.T) {
	records := []model.ActivityRecord{
		appRecord("com.app.a", math.NaN(), -3, -1),
		appRecord("com.app.a", math.Inf(1), 1, 1),
		appRecord("com.app.a", -10, 0, 0),
		appRecord("com.app.a", 15, 0, 0),
	}

	snapshot := newTestAggregator().AggregateSlice(records, testViewState())

	require.Len(t, snapshot.Applications, 1)
	assert.Equal(t, 15.0, snapshot.TotalActivityDurationSeconds)
	assert.Equal(t, 15.0, snapshot.Applications[0].DurationSeconds)
	assert.Equal(t, 1, snapshot.TotalPickups)
	assert.Equal(t, 1, snapshot.TotalNotifications)
}

func TestFoldConsumesEntireSequence(t *testing.T) {
	consumed := 0
	seq := iter.Seq[model.ActivityRecord](func(yield func(model.ActivityRecord) bool) {
		for i := 0; i < 1000; i++ {
			consumed++
			if !yield(appRecord("com.app.a", 1, 0, 0)) {
				return
			}
		}
	})

	result := newTestAggregator().Fold(seq)

	assert.Equal(t, 1000, consumed)
	assert.Equal(t, 1000, result.Records)
	assert.Equal(t, 1000.0, result.TotalActivityDurationSeconds)
}

func TestSnapshotDoesNotAliasResult(t *testing.T) {
	a := newTestAggregator()
	result := a.Fold(slices.Values([]model.ActivityRecord{appRecord("a", 1, 0, 0)}))

	snapshot := a.Snapshot(result, testViewState())
	snapshot.Applications[0].DurationSeconds = 99

	assert.Equal(t, 1.0, result.Applications[0].DurationSeconds)
}

func TestPreferString(t *testing.T) {
	a, b := "alpha", "beta"
	assert.Equal(t, "alpha", *preferString(&b, &a))
	assert.Equal(t, "alpha", *preferString(&a, &b))
	assert.Equal(t, "beta", *preferString(nil, &b))
	assert.Nil(t, preferString(nil, nil))
	empty := ""
	assert.Equal(t, "beta", *preferString(&b, &empty))
}
