package fixtures

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/core/model"
)

const exportFileName = "activity.jsonl"

// TestDataGenerator writes activity record exports the way the host adapter
// leaves them on disk: one directory per device, one JSONL file each.
type TestDataGenerator struct {
	baseDir string
}

// NewTestDataGenerator creates a new test data generator
func NewTestDataGenerator(baseDir string) *TestDataGenerator {
	return &TestDataGenerator{
		baseDir: baseDir,
	}
}

// App builds a record for a bundle with an optional display name.
func App(bundle, name string, duration float64, pickups, notifications int) model.ActivityRecord {
	app := &model.Application{}
	if bundle != "" {
		app.BundleIdentifier = model.StringPtr(bundle)
	}
	if name != "" {
		app.LocalizedDisplayName = model.StringPtr(name)
	}
	return model.ActivityRecord{
		DurationSeconds: duration,
		Application:     app,
		Pickups:         pickups,
		Notifications:   notifications,
	}
}

// InCategory returns record assigned to category.
func InCategory(record model.ActivityRecord, category string) model.ActivityRecord {
	record.Category = &model.Category{LocalizedDisplayName: model.StringPtr(category)}
	return record
}

// GenerateSimpleDay writes two records of one app: 30s and 90s with 2 and 3
// pickups, plus one record of a second app in another category.
func (g *TestDataGenerator) GenerateSimpleDay(device string) (string, error) {
	records := []model.ActivityRecord{
		InCategory(App("com.app.a", "App A", 30, 2, 0), "Social"),
		InCategory(App("com.app.a", "App A", 90, 3, 0), "Social"),
		InCategory(App("com.app.b", "App B", 45, 1, 4), "Productivity"),
	}
	return g.write(device, records)
}

// GenerateManyApplications writes one record per application with
// increasing durations, each in its own category.
func (g *TestDataGenerator) GenerateManyApplications(device string, count int) (string, error) {
	records := make([]model.ActivityRecord, 0, count)
	for i := 0; i < count; i++ {
		record := App(fmt.Sprintf("com.app.%03d", i), "", float64((i+1)*60), 1, 1)
		records = append(records, InCategory(record, fmt.Sprintf("Category %03d", i)))
	}
	return g.write(device, records)
}

// GenerateUnidentified writes records the host could not attribute to any
// application or category.
func (g *TestDataGenerator) GenerateUnidentified(device string) (string, error) {
	records := []model.ActivityRecord{
		{DurationSeconds: 12, Pickups: 1},
		{DurationSeconds: 8, Application: &model.Application{}},
	}
	return g.write(device, records)
}

// GenerateLargeDataset generates a large dataset for performance testing
func (g *TestDataGenerator) GenerateLargeDataset(device string, numEntries int) (string, error) {
	records := make([]model.ActivityRecord, 0, numEntries)
	for i := 0; i < numEntries; i++ {
		record := App(fmt.Sprintf("com.app.%d", i%40), "", float64(i%600), i%5, i%3)
		records = append(records, InCategory(record, fmt.Sprintf("Category %d", i%20)))
	}
	return g.write(device, records)
}

// GenerateCorruptedExport writes valid records interleaved with garbage lines.
func (g *TestDataGenerator) GenerateCorruptedExport(device string) (string, error) {
	path, err := g.write(device, []model.ActivityRecord{App("com.app.a", "", 10, 1, 0)})
	if err != nil {
		return "", err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString("not json\n{\"durationSeconds\":\n[]\n{\"durationSeconds\":20}\n"); err != nil {
		return "", err
	}
	return path, nil
}

// CreateEmptyExport creates an export file without records.
func (g *TestDataGenerator) CreateEmptyExport(device string) (string, error) {
	return g.write(device, nil)
}

func (g *TestDataGenerator) write(device string, records []model.ActivityRecord) (string, error) {
	dir := filepath.Join(g.baseDir, device)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, exportFileName)
	return path, g.WriteJSONL(path, records)
}

// WriteJSONL writes records to a JSONL file, one object per line.
func (g *TestDataGenerator) WriteJSONL(filename string, records []model.ActivityRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, record := range records {
		line, err := sonic.Marshal(record)
		if err != nil {
			return err
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	return w.Flush()
}

// GetBaseDir returns the base directory for test data
func (g *TestDataGenerator) GetBaseDir() string {
	return g.baseDir
}
