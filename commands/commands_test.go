package commands

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/config"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/data/codec"
	"github.com/penwyp/go-activity-report/internal/data/store"
	"github.com/penwyp/go-activity-report/internal/presentation/formatter"
	"github.com/penwyp/go-activity-report/internal/testing/fixtures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViewStateGetDefault(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "view-state", "get")
	require.NoError(t, err)

	var state model.ViewState
	require.NoError(t, sonic.Unmarshal([]byte(output), &state))
	assert.Equal(t, config.DefaultReportContext, state.Context)
	assert.Equal(t, model.SegmentationDaily, state.Segmentation)
	assert.Less(t, state.From, state.To)
}

func TestViewStateSetAndGet(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "view-state", "set", "-c", "focus",
		"--from", "200", "--to", "100", "--segmentation", "weekly")
	require.NoError(t, err)

	var state model.ViewState
	require.NoError(t, sonic.Unmarshal([]byte(output), &state))
	assert.Equal(t, "focus", state.Context)
	assert.Equal(t, 100.0, state.From)
	assert.Equal(t, 200.0, state.To)
	assert.Equal(t, model.SegmentationWeekly, state.Segmentation)
	assert.NotEmpty(t, state.GeneratedAt)

	// Only the given flags change
	output, err = env.run(t, "view-state", "set", "-c", "focus", "--to", "500")
	require.NoError(t, err)
	require.NoError(t, sonic.Unmarshal([]byte(output), &state))
	assert.Equal(t, 100.0, state.From)
	assert.Equal(t, 500.0, state.To)
	assert.Equal(t, model.SegmentationWeekly, state.Segmentation)

	output, err = env.run(t, "view-state", "get", "-c", "focus", "-o", "text")
	require.NoError(t, err)
	assert.Contains(t, output, "focus")
	assert.Contains(t, output, "weekly")
}

func TestViewStateGetUnknownOutput(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "view-state", "get", "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestViewStateList(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "view-state", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "No report contexts found")

	_, err = env.run(t, "view-state", "set", "-c", "weekly", "--from", "1", "--to", "2")
	require.NoError(t, err)
	_, err = env.run(t, "view-state", "set", "-c", "daily", "--from", "1", "--to", "2")
	require.NoError(t, err)

	output, err = env.run(t, "view-state", "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"daily", "weekly"}, strings.Fields(output))
}

func TestViewStateApply(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "view-state", "apply", "-c", "focus",
		"--from", "100", "--to", "200",
		"--segmentation", "hourly",
		"--users", "children",
		"--devices", "3,1,3",
		"--selection", `{"applicationTokens":["token-a"]}`,
	)
	require.NoError(t, err)

	var filter model.Filter
	require.NoError(t, sonic.Unmarshal([]byte(output), &filter))
	assert.Equal(t, model.SegmentationHourly, filter.Segment.Segmentation)
	assert.Equal(t, int64(100), filter.Segment.Start.Unix())
	assert.Equal(t, int64(200), filter.Segment.End.Unix())
	require.NotNil(t, filter.Users)
	assert.Equal(t, model.UsersChildren, *filter.Users)
	assert.Equal(t, []int{1, 3}, filter.Devices.Models)
	assert.Equal(t, []string{"token-a"}, filter.Selection.ApplicationTokens)

	// Every property change was persisted for the extension
	output, err = env.run(t, "view-state", "get", "-c", "focus")
	require.NoError(t, err)
	var state model.ViewState
	require.NoError(t, sonic.Unmarshal([]byte(output), &state))
	assert.Equal(t, 100.0, state.From)
	assert.Equal(t, 200.0, state.To)
	assert.Equal(t, model.SegmentationHourly, state.Segmentation)
}

func TestViewStateApplyDefaults(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "view-state", "apply")
	require.NoError(t, err)

	var filter model.Filter
	require.NoError(t, sonic.Unmarshal([]byte(output), &filter))
	assert.Equal(t, model.SegmentationDaily, filter.Segment.Segmentation)
	require.NotNil(t, filter.Users)
	assert.Equal(t, model.UsersAll, *filter.Users)
	assert.True(t, filter.Devices.All)
	assert.True(t, filter.Selection.Empty())
}

func TestAggregateAndSnapshot(t *testing.T) {
	env := newTestEnv(t)
	exports := t.TempDir()
	_, err := fixtures.NewTestDataGenerator(exports).GenerateSimpleDay("iphone")
	require.NoError(t, err)

	_, err = env.run(t, "view-state", "set", "--from", "1000", "--to", "2000", "--segmentation", "hourly")
	require.NoError(t, err)

	output, err := env.run(t, "aggregate", "--input", exports)
	require.NoError(t, err)
	assert.Contains(t, output, "Context:        "+config.DefaultReportContext)
	assert.Contains(t, output, "Total activity: 2m 45s")
	assert.Contains(t, output, "Records:        3 (0 lines skipped)")

	output, err = env.run(t, "snapshot", "-o", "json")
	require.NoError(t, err)
	snapshot := codec.Deserialize(codec.Text(output))
	require.NotNil(t, snapshot)
	assert.Equal(t, config.DefaultReportContext, snapshot.Context)
	assert.Equal(t, 1000.0, snapshot.From)
	assert.Equal(t, 2000.0, snapshot.To)
	assert.Equal(t, model.SegmentationHourly, snapshot.Segmentation)
	assert.Equal(t, 165.0, snapshot.TotalActivityDurationSeconds)
	assert.Equal(t, 6, snapshot.TotalPickups)
	assert.Equal(t, 4, snapshot.TotalNotifications)
	require.Len(t, snapshot.Applications, 2)
	assert.Equal(t, "App A", snapshot.Applications[0].DisplayName())
	assert.Equal(t, 120.0, snapshot.Applications[0].DurationSeconds)
	require.Len(t, snapshot.Categories, 2)
	assert.Equal(t, "Social", snapshot.Categories[0].DisplayName())

	output, err = env.run(t, "snapshot", "-o", "csv")
	require.NoError(t, err)
	assert.Contains(t, output, "Kind,Name,Bundle Identifier")
	assert.Contains(t, output, "com.app.a")

	output, err = env.run(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, output, "App A")
	assert.Contains(t, output, "Total")
}

func TestAggregateWithOutputAndLimits(t *testing.T) {
	env := newTestEnv(t)
	exports := t.TempDir()
	_, err := fixtures.NewTestDataGenerator(exports).GenerateManyApplications("ipad", 10)
	require.NoError(t, err)

	output, err := env.run(t, "aggregate", "--input", exports,
		"--max-applications", "3", "--max-categories", "2", "-o", "json", "-c", "weekly")
	require.NoError(t, err)

	start := strings.Index(output, "{")
	require.GreaterOrEqual(t, start, 0)
	snapshot := codec.Deserialize(codec.Text(output[start:]))
	require.NotNil(t, snapshot)
	assert.Equal(t, "weekly", snapshot.Context)
	assert.Len(t, snapshot.Applications, 3)
	assert.Len(t, snapshot.Categories, 2)
	// Totals cover every application: 60 * (1 + ... + 10)
	assert.Equal(t, 3300.0, snapshot.TotalActivityDurationSeconds)
}

func TestAggregateCorruptedExport(t *testing.T) {
	env := newTestEnv(t)
	exports := t.TempDir()
	_, err := fixtures.NewTestDataGenerator(exports).GenerateCorruptedExport("iphone")
	require.NoError(t, err)

	output, err := env.run(t, "aggregate", "--input", exports)
	require.NoError(t, err)
	assert.Contains(t, output, "Records:        2 (3 lines skipped)")
	assert.Contains(t, output, "Total activity: 30s")
}

func TestAggregateErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.run(t, "aggregate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")

	_, err = env.run(t, "aggregate", "--input", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)

	_, err = env.run(t, "aggregate", "--input", t.TempDir(), "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestSnapshotMissing(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, output, "No snapshot available")

	output, err = env.run(t, "snapshot", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "null", strings.TrimSpace(output))

	_, err = env.run(t, "snapshot", "-o", "xml")
	require.Error(t, err)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	exports := t.TempDir()
	_, err := fixtures.NewTestDataGenerator(exports).GenerateSimpleDay("iphone")
	require.NoError(t, err)

	_, err = env.run(t, "aggregate", "--input", exports)
	require.NoError(t, err)
	_, err = env.run(t, "aggregate", "--input", exports, "-c", "weekly")
	require.NoError(t, err)

	output, err := env.run(t, "reset")
	require.NoError(t, err)
	assert.Contains(t, output, "Reset 1 report context(s)")

	output, err = env.run(t, "snapshot")
	require.NoError(t, err)
	assert.Contains(t, output, "No snapshot available")

	output, err = env.run(t, "view-state", "list")
	require.NoError(t, err)
	assert.Equal(t, []string{"weekly"}, strings.Fields(output))

	output, err = env.run(t, "reset", "--all")
	require.NoError(t, err)
	assert.Contains(t, output, "Reset 1 report context(s)")

	output, err = env.run(t, "view-state", "list")
	require.NoError(t, err)
	assert.Contains(t, output, "No report contexts found")

	files, err := filepath.Glob(filepath.Join(env.storeDir, "group.test", "*.json"))
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestAvailable(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"ios 17", []string{"--version", "17.2"}, "true"},
		{"ios 16", []string{"--version", "16"}, "true"},
		{"ios 15", []string{"--version", "15.7"}, "false"},
		{"android", []string{"--os", "android", "--version", "17"}, "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := executeCommand(append([]string{"available"}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, strings.TrimSpace(output))
		})
	}

	_, err := executeCommand("available")
	require.Error(t, err)
}

func TestWatchRequiresFileBackend(t *testing.T) {
	env := newTestEnv(t)

	_, err := executeCommand("watch",
		"--backend", "memory",
		"--env-file", "",
		"--log-file", env.logFile,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires the file backend")
}

// syncBuffer guards a strings.Builder shared by the watch loop and the test.
type syncBuffer struct {
	mu sync.Mutex
	b  strings.Builder
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestWatchSnapshots(t *testing.T) {
	cfg := config.Default()
	fb, err := store.NewFileBackend(t.TempDir(), "group.test")
	require.NoError(t, err)
	st := store.New(fb, cfg)

	watcher, err := store.NewWatcher(fb.Dir())
	require.NoError(t, err)
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- watchSnapshots(ctx, out, st, watcher, formatter.NewJSONFormatter(), cfg.DefaultContext)
	}()

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "null")
	}, 2*time.Second, 10*time.Millisecond)

	// Other contexts are ignored
	require.NoError(t, st.SetSnapshot(ctx, &model.Snapshot{Version: model.SnapshotVersion, Context: "other"}))
	require.NoError(t, st.SetSnapshot(ctx, &model.Snapshot{
		Version:                      model.SnapshotVersion,
		Context:                      cfg.DefaultContext,
		TotalActivityDurationSeconds: 42,
	}))

	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"totalActivityDurationSeconds": 42`)
	}, 2*time.Second, 10*time.Millisecond)
	assert.NotContains(t, out.String(), `"context": "other"`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watchSnapshots did not stop after cancel")
	}
}
