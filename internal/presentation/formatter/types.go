// Package formatter renders snapshots for the terminal and for scripts.
package formatter

import (
	"fmt"
	"io"

	"github.com/penwyp/go-activity-report/internal/core/model"
)

// Formatter writes one snapshot to w. A nil snapshot means nothing has been
// written for the context yet.
type Formatter interface {
	Format(w io.Writer, snapshot *model.Snapshot) error
}

// Output formats accepted by New.
const (
	OutputTable   = "table"
	OutputJSON    = "json"
	OutputCSV     = "csv"
	OutputSummary = "summary"
)

// New returns the formatter for an output name.
func New(output string) (Formatter, error) {
	switch output {
	case OutputTable, "":
		return NewTableFormatter(), nil
	case OutputJSON:
		return NewJSONFormatter(), nil
	case OutputCSV:
		return NewCSVFormatter(), nil
	case OutputSummary:
		return NewSummaryFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected table, json, csv or summary)", output)
	}
}

// Row is one application or category line of a snapshot.
type Row struct {
	Kind          string
	Name          string
	Identifier    string
	Duration      float64
	Share         float64
	Pickups       int
	Notifications int
}

const (
	KindApplication = "application"
	KindCategory    = "category"
)

// Rows flattens a snapshot into application rows followed by category rows.
// Share is relative to the snapshot total.
func Rows(snapshot *model.Snapshot) []Row {
	if snapshot == nil {
		return nil
	}

	share := func(duration float64) float64 {
		if snapshot.TotalActivityDurationSeconds <= 0 {
			return 0
		}
		return duration / snapshot.TotalActivityDurationSeconds
	}

	rows := make([]Row, 0, len(snapshot.Applications)+len(snapshot.Categories))
	for _, app := range snapshot.Applications {
		identifier := ""
		if app.BundleIdentifier != nil {
			identifier = *app.BundleIdentifier
		}
		rows = append(rows, Row{
			Kind:          KindApplication,
			Name:          app.DisplayName(),
			Identifier:    identifier,
			Duration:      app.DurationSeconds,
			Share:         share(app.DurationSeconds),
			Pickups:       app.Pickups,
			Notifications: app.Notifications,
		})
	}
	for _, category := range snapshot.Categories {
		rows = append(rows, Row{
			Kind:     KindCategory,
			Name:     category.DisplayName(),
			Duration: category.DurationSeconds,
			Share:    share(category.DurationSeconds),
		})
	}
	return rows
}
