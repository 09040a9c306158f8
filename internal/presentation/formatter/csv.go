package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/penwyp/go-activity-report/internal/core/model"
)

type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) Format(w io.Writer, snapshot *model.Snapshot) error {
	cw := csv.NewWriter(w)

	headers := []string{
		"Kind", "Name", "Bundle Identifier", "Duration (s)", "Share", "Pickups", "Notifications",
	}
	if err := cw.Write(headers); err != nil {
		return err
	}

	for _, row := range Rows(snapshot) {
		record := []string{
			row.Kind,
			row.Name,
			row.Identifier,
			strconv.FormatFloat(row.Duration, 'f', -1, 64),
			fmt.Sprintf("%.4f", row.Share),
			strconv.Itoa(row.Pickups),
			strconv.Itoa(row.Notifications),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
