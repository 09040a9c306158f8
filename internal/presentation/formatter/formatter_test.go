package formatter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Version:                      1,
		Context:                      "totalActivity",
		GeneratedAt:                  "2026-02-06T14:30:00Z",
		From:                         1770336000,
		To:                           1770388200,
		Segmentation:                 model.SegmentationDaily,
		TotalActivityDurationSeconds: 165,
		TotalPickups:                 6,
		TotalNotifications:           4,
		Applications: []model.ApplicationBucket{
			{BundleIdentifier: model.StringPtr("com.app.a"), LocalizedDisplayName: model.StringPtr("App A"), DurationSeconds: 120, Pickups: 5},
			{BundleIdentifier: model.StringPtr("com.app.b"), DurationSeconds: 45, Pickups: 1, Notifications: 4},
		},
		Categories: []model.CategoryBucket{
			{LocalizedDisplayName: model.StringPtr("Social"), DurationSeconds: 120},
			{DurationSeconds: 45},
		},
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		output   string
		expected Formatter
	}{
		{OutputTable, &TableFormatter{}},
		{"", &TableFormatter{}},
		{OutputJSON, &JSONFormatter{}},
		{OutputCSV, &CSVFormatter{}},
		{OutputSummary, &SummaryFormatter{}},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			f, err := New(tt.output)
			require.NoError(t, err)
			assert.IsType(t, tt.expected, f)
		})
	}

	_, err := New("yaml")
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	rows := Rows(createTestSnapshot())

	require.Len(t, rows, 4)
	assert.Equal(t, Row{
		Kind: KindApplication, Name: "App A", Identifier: "com.app.a",
		Duration: 120, Share: 120.0 / 165, Pickups: 5,
	}, rows[0])
	assert.Equal(t, "com.app.b", rows[1].Name, "bundle id is the fallback name")
	assert.Equal(t, KindCategory, rows[2].Kind)
	assert.Equal(t, model.UnknownCategory, rows[3].Name)

	assert.Nil(t, Rows(nil))

	empty := Rows(&model.Snapshot{Applications: []model.ApplicationBucket{{DurationSeconds: 0}}})
	require.Len(t, empty, 1)
	assert.Zero(t, empty[0].Share)
}

func TestTableFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewTableFormatter().Format(&buf, createTestSnapshot()))
	output := buf.String()

	assert.Contains(t, output, "Application")
	assert.Contains(t, output, "App A")
	assert.Contains(t, output, "com.app.b")
	assert.Contains(t, output, "2m")
	assert.Contains(t, output, "2m 45s")
	assert.Contains(t, output, "72.7%")
	assert.Contains(t, output, "Total")
	assert.Contains(t, output, "Social")
	assert.Contains(t, output, model.UnknownCategory)

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "┌"))
	assert.True(t, strings.HasPrefix(lines[len(lines)-1], "└"))

	// every line of a table has the same display width
	firstTable := lines[:8]
	for _, line := range firstTable {
		assert.Equal(t, util.GetDisplayWidth(firstTable[0]), util.GetDisplayWidth(line), line)
	}
}

func TestTableFormatterTruncatesLongNames(t *testing.T) {
	snapshot := createTestSnapshot()
	snapshot.Applications[0].LocalizedDisplayName = model.StringPtr(strings.Repeat("很长的名字", 20))

	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter().Format(&buf, snapshot))

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")[:8] {
		assert.LessOrEqual(t, util.GetDisplayWidth(line), 100)
	}
	assert.Contains(t, buf.String(), "…")
}

func TestTableFormatterNilAndEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter().Format(&buf, nil))
	assert.Equal(t, "No snapshot available\n", buf.String())

	buf.Reset()
	require.NoError(t, NewTableFormatter().Format(&buf, &model.Snapshot{Version: 1, Context: "x"}))
	assert.Contains(t, buf.String(), "Total")
	assert.NotContains(t, buf.String(), "Category")
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", formatNumber(0))
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1,000", formatNumber(1000))
	assert.Equal(t, "1,234,567", formatNumber(1234567))
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewJSONFormatter().Format(&buf, createTestSnapshot()))

	var decoded map[string]any
	require.NoError(t, sonic.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "totalActivity", decoded["context"])
	assert.Equal(t, 165.0, decoded["totalActivityDurationSeconds"])
	assert.Len(t, decoded["applications"], 2)
	assert.Less(t, strings.Index(buf.String(), `"applications"`), strings.Index(buf.String(), `"categories"`))

	buf.Reset()
	require.NoError(t, NewJSONFormatter().Format(&buf, nil))
	assert.Equal(t, "null\n", buf.String())
}

func TestCSVFormatter(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewCSVFormatter().Format(&buf, createTestSnapshot()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "Kind", records[0][0])
	assert.Equal(t, []string{"application", "App A", "com.app.a", "120", "0.7273", "5", "0"}, records[1])
	assert.Equal(t, []string{"category", "unknown-category", "", "45", "0.2727", "0", "0"}, records[4])
}

func TestCSVFormatterNil(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewCSVFormatter().Format(&buf, nil))

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"), "header only")
}

func TestSummaryFormatter(t *testing.T) {
	require.NoError(t, util.InitializeTimeProvider("UTC"))
	var buf bytes.Buffer

	require.NoError(t, NewSummaryFormatter().WithColor(false).Format(&buf, createTestSnapshot()))
	output := buf.String()

	assert.Contains(t, output, "Screen Time Summary")
	assert.Contains(t, output, "Context: totalActivity")
	assert.Contains(t, output, "Range: 2026-02-06 00:00 to 2026-02-06 14:30")
	assert.Contains(t, output, "Segmentation: daily")
	assert.Contains(t, output, "Updated Feb 6, 2026 at 2:30 PM")
	assert.Contains(t, output, "Screen Time: 2m 45s")
	assert.Contains(t, output, "Pickups: 6")
	assert.Contains(t, output, "Notifications: 4")
	assert.Contains(t, output, "1. App A")
	assert.Contains(t, output, "2. com.app.b")
	assert.Contains(t, output, "Categories:")
	assert.NotContains(t, output, util.ColorReset)
}

func TestSummaryFormatterColor(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewSummaryFormatter().WithColor(true).Format(&buf, createTestSnapshot()))

	assert.Contains(t, buf.String(), util.ColorCyan)
}

func TestSummaryFormatterDefaultsToNoColorForBuffers(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewSummaryFormatter().Format(&buf, createTestSnapshot()))

	assert.NotContains(t, buf.String(), util.ColorReset)
}

func TestSummaryFormatterNil(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, NewSummaryFormatter().Format(&buf, nil))

	assert.Contains(t, buf.String(), "No snapshot available")
}

func TestSummaryFormatterViewState(t *testing.T) {
	require.NoError(t, util.InitializeTimeProvider("UTC"))
	var buf bytes.Buffer

	require.NoError(t, NewSummaryFormatter().FormatViewState(&buf, model.ViewState{
		Context: "weekly", From: 0, To: 3600, Segmentation: model.SegmentationWeekly,
		GeneratedAt: "2026-02-06T14:30:00Z",
	}))

	assert.Equal(t, "Context: weekly\nRange: 1970-01-01 00:00 to 1970-01-01 01:00 (1h)\nSegmentation: weekly\nUpdated: 2026-02-06T14:30:00Z\n", buf.String())
}
