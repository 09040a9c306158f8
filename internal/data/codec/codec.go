// Package codec converts snapshots to and from the JSON shape shared between
// the report extension and the host application.
//
// Snapshots cross the process boundary either as a native key/value record or
// as JSON text, depending on what the backing store hands back. Both shapes go
// through the same parser. Encoding always produces canonical text: keys are
// sorted at every level so identical snapshots serialize identically.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/core/model"
)

// ErrNilSnapshot is returned when encoding a nil snapshot.
var ErrNilSnapshot = errors.New("nil snapshot")

var canonicalAPI = sonic.Config{
	SortMapKeys: true,
	UseNumber:   true,
}.Froze()

var recognizedKeys = map[string]struct{}{
	"version":                      {},
	"context":                      {},
	"generatedAt":                  {},
	"from":                         {},
	"to":                           {},
	"segmentation":                 {},
	"totalActivityDurationSeconds": {},
	"totalPickups":                 {},
	"totalNotifications":           {},
	"applications":                 {},
	"categories":                   {},
}

// Input is a raw snapshot value: either a Record or Text.
type Input interface {
	payload() ([]byte, bool)
}

type record map[string]any

type text string

// Record wraps an already structured key/value snapshot.
func Record(fields map[string]any) Input {
	if fields == nil {
		return nil
	}
	return record(fields)
}

// Text wraps JSON text.
func Text(s string) Input {
	return text(s)
}

// FromAny classifies an arbitrary raw value. Values that are neither a record
// nor text yield a nil Input, which Deserialize rejects.
func FromAny(raw any) Input {
	switch v := raw.(type) {
	case Input:
		return v
	case map[string]any:
		return Record(v)
	case string:
		return Text(v)
	case []byte:
		return Text(string(v))
	default:
		return nil
	}
}

func (r record) payload() ([]byte, bool) {
	data, err := canonicalAPI.Marshal(map[string]any(r))
	if err != nil {
		return nil, false
	}
	return data, true
}

func (t text) payload() ([]byte, bool) {
	return []byte(t), true
}

// Deserialize parses raw into a snapshot. It returns nil for anything that is
// not a JSON object carrying at least a numeric "version" and a string
// "context". Other recognized keys are read leniently: a missing or mistyped
// value leaves the zero value. Unrecognized keys end up in Snapshot.Extra.
func Deserialize(raw Input) *model.Snapshot {
	if raw == nil {
		return nil
	}
	data, ok := raw.payload()
	if !ok {
		return nil
	}
	return parse(data)
}

// DeserializeAny is Deserialize(FromAny(raw)).
func DeserializeAny(raw any) *model.Snapshot {
	return Deserialize(FromAny(raw))
}

func parse(data []byte) *model.Snapshot {
	var fields map[string]any
	if err := canonicalAPI.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil
	}

	version, ok := intValue(fields["version"])
	if !ok {
		return nil
	}
	reportContext, ok := fields["context"].(string)
	if !ok {
		return nil
	}

	snapshot := &model.Snapshot{
		Version:                      version,
		Context:                      reportContext,
		GeneratedAt:                  stringValue(fields["generatedAt"]),
		From:                         floatOrZero(fields["from"]),
		To:                           floatOrZero(fields["to"]),
		TotalActivityDurationSeconds: floatOrZero(fields["totalActivityDurationSeconds"]),
		TotalPickups:                 intOrZero(fields["totalPickups"]),
		TotalNotifications:           intOrZero(fields["totalNotifications"]),
		Applications:                 parseApplications(fields["applications"]),
		Categories:                   parseCategories(fields["categories"]),
	}
	if seg, ok := fields["segmentation"].(string); ok {
		snapshot.Segmentation = model.Segmentation(seg)
	}

	for key, value := range fields {
		if _, known := recognizedKeys[key]; known {
			continue
		}
		if snapshot.Extra == nil {
			snapshot.Extra = make(map[string]any)
		}
		snapshot.Extra[key] = value
	}
	return snapshot
}

func parseApplications(raw any) []model.ApplicationBucket {
	items, _ := raw.([]any)
	apps := make([]model.ApplicationBucket, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		apps = append(apps, model.ApplicationBucket{
			BundleIdentifier:     optionalString(m["bundleIdentifier"]),
			LocalizedDisplayName: optionalString(m["localizedDisplayName"]),
			DurationSeconds:      floatOrZero(m["durationSeconds"]),
			Pickups:              intOrZero(m["pickups"]),
			Notifications:        intOrZero(m["notifications"]),
		})
	}
	return apps
}

func parseCategories(raw any) []model.CategoryBucket {
	items, _ := raw.([]any)
	categories := make([]model.CategoryBucket, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		categories = append(categories, model.CategoryBucket{
			LocalizedDisplayName: optionalString(m["localizedDisplayName"]),
			DurationSeconds:      floatOrZero(m["durationSeconds"]),
		})
	}
	return categories
}

// Encode renders snapshot as canonical JSON text with sorted keys. Extra keys
// are merged in unless they collide with a recognized key.
func Encode(snapshot *model.Snapshot) ([]byte, error) {
	fields, err := toFields(snapshot)
	if err != nil {
		return nil, err
	}
	return canonicalAPI.Marshal(fields)
}

// EncodeIndent is Encode with indentation for display.
func EncodeIndent(snapshot *model.Snapshot) ([]byte, error) {
	fields, err := toFields(snapshot)
	if err != nil {
		return nil, err
	}
	return canonicalAPI.MarshalIndent(fields, "", "  ")
}

func toFields(snapshot *model.Snapshot) (map[string]any, error) {
	if snapshot == nil {
		return nil, ErrNilSnapshot
	}

	clone := *snapshot
	if clone.Applications == nil {
		clone.Applications = []model.ApplicationBucket{}
	}
	if clone.Categories == nil {
		clone.Categories = []model.CategoryBucket{}
	}

	data, err := canonicalAPI.Marshal(clone)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	var fields map[string]any
	if err := canonicalAPI.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert snapshot to fields: %w", err)
	}

	for key, value := range snapshot.Extra {
		if _, exists := fields[key]; exists {
			continue
		}
		fields[key] = value
	}
	return fields, nil
}

func numberValue(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func intValue(v any) (int, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	f, ok := numberValue(v)
	if !ok {
		return 0, false
	}
	switch {
	case f >= math.MaxInt:
		return math.MaxInt, true
	case f <= math.MinInt:
		return math.MinInt, true
	}
	return int(math.Trunc(f)), true
}

func floatOrZero(v any) float64 {
	f, _ := numberValue(v)
	return f
}

func intOrZero(v any) int {
	i, _ := intValue(v)
	return i
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func optionalString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}
