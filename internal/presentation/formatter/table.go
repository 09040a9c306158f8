package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/util"
)

const (
	minColumnWidth = 8
	maxNameWidth   = 40
)

type TableFormatter struct {
	maxNameWidth int
}

func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		maxNameWidth: maxNameWidth,
	}
}

// Format prints an applications table with a total row, then a categories
// table.
func (f *TableFormatter) Format(w io.Writer, snapshot *model.Snapshot) error {
	if snapshot == nil {
		_, err := fmt.Fprintln(w, "No snapshot available")
		return err
	}

	apps := [][]string{}
	categories := [][]string{}
	for _, row := range Rows(snapshot) {
		switch row.Kind {
		case KindApplication:
			apps = append(apps, []string{
				row.Name,
				util.FormatActivityDuration(row.Duration),
				util.FormatPercentage(row.Duration, snapshot.TotalActivityDurationSeconds),
				formatNumber(row.Pickups),
				formatNumber(row.Notifications),
			})
		case KindCategory:
			categories = append(categories, []string{
				row.Name,
				util.FormatActivityDuration(row.Duration),
				util.FormatPercentage(row.Duration, snapshot.TotalActivityDurationSeconds),
			})
		}
	}

	total := []string{
		"Total",
		util.FormatActivityDuration(snapshot.TotalActivityDurationSeconds),
		"",
		formatNumber(snapshot.TotalPickups),
		formatNumber(snapshot.TotalNotifications),
	}

	appTable := &boxTable{
		headers:      []string{"Application", "Duration", "Share", "Pickups", "Notifications"},
		rows:         apps,
		footer:       total,
		maxNameWidth: f.maxNameWidth,
	}
	if err := appTable.write(w); err != nil {
		return err
	}

	if len(categories) == 0 {
		return nil
	}
	categoryTable := &boxTable{
		headers:      []string{"Category", "Duration", "Share"},
		rows:         categories,
		maxNameWidth: f.maxNameWidth,
	}
	return categoryTable.write(w)
}

// boxTable draws a table with box-drawing borders. The first column is left
// aligned and truncated to maxNameWidth; the others are right aligned.
type boxTable struct {
	headers      []string
	rows         [][]string
	footer       []string
	maxNameWidth int
}

func (t *boxTable) write(w io.Writer) error {
	widths := t.calculateColumnWidths()

	var b strings.Builder
	t.printBorder(&b, widths, "top")
	t.printRow(&b, t.headers, widths)
	t.printBorder(&b, widths, "middle")
	for _, row := range t.rows {
		t.printRow(&b, row, widths)
	}
	if t.footer != nil {
		t.printBorder(&b, widths, "middle")
		t.printRow(&b, t.footer, widths)
	}
	t.printBorder(&b, widths, "bottom")

	_, err := io.WriteString(w, b.String())
	return err
}

// calculateColumnWidths determines the display width of each column
func (t *boxTable) calculateColumnWidths() []int {
	widths := make([]int, len(t.headers))
	measure := func(values []string) {
		for i, value := range values {
			if width := util.GetDisplayWidth(value); width > widths[i] {
				widths[i] = width
			}
		}
	}

	measure(t.headers)
	for _, row := range t.rows {
		measure(row)
	}
	if t.footer != nil {
		measure(t.footer)
	}

	for i := range widths {
		widths[i] = max(widths[i], minColumnWidth)
	}
	if t.maxNameWidth > 0 {
		widths[0] = min(widths[0], max(t.maxNameWidth, util.GetDisplayWidth(t.headers[0])))
	}
	return widths
}

// printBorder prints table borders (top, middle, bottom)
func (t *boxTable) printBorder(b *strings.Builder, widths []int, borderType string) {
	var left, middle, right string

	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(util.Rule(width + 2)) // +2 for padding spaces
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	b.WriteString("\n")
}

// printRow prints a data row with proper alignment
func (t *boxTable) printRow(b *strings.Builder, values []string, widths []int) {
	b.WriteString("│")
	for i, width := range widths {
		value := ""
		if i < len(values) {
			value = values[i]
		}
		if i == 0 {
			b.WriteString(" " + util.PadRight(value, width) + " │")
		} else {
			b.WriteString(" " + util.PadLeft(value, width) + " │")
		}
	}
	b.WriteString("\n")
}

func formatNumber(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result []byte
	for i, digit := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, digit)
	}

	return string(result)
}
