package formatter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/util"
)

const (
	summaryWidth    = 60
	summaryTopApps  = 5
	rangeTimeLayout = "2006-01-02 15:04"
)

// SummaryFormatter is responsible for formatting and outputting summary reports.
type SummaryFormatter struct {
	color *bool
}

// NewSummaryFormatter creates a new instance of SummaryFormatter. Colors are
// used when the output is a terminal.
func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{}
}

// WithColor forces colors on or off.
func (f *SummaryFormatter) WithColor(enabled bool) *SummaryFormatter {
	f.color = &enabled
	return f
}

func (f *SummaryFormatter) useColor(w io.Writer) bool {
	if f.color != nil {
		return *f.color
	}
	return util.IsTerminal(w)
}

// Format formats and outputs the summary of one snapshot.
func (f *SummaryFormatter) Format(w io.Writer, snapshot *model.Snapshot) error {
	color := f.useColor(w)
	var b strings.Builder

	b.WriteString(strings.Repeat("=", summaryWidth) + "\n")
	b.WriteString(util.Colorize("Screen Time Summary", util.ColorBold, color) + "\n")
	b.WriteString(strings.Repeat("=", summaryWidth) + "\n\n")

	if snapshot == nil {
		b.WriteString("No snapshot available\n\n")
		b.WriteString(strings.Repeat("=", summaryWidth) + "\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Context: %s\n", snapshot.Context)
	fmt.Fprintf(&b, "Range: %s\n", formatRange(snapshot.From, snapshot.To))
	fmt.Fprintf(&b, "Segmentation: %s\n", snapshot.Segmentation)
	if generatedAt, err := time.Parse(time.RFC3339, snapshot.GeneratedAt); err == nil {
		fmt.Fprintf(&b, "Updated %s\n", util.FormatGeneratedAt(generatedAt.In(util.GetTimeProvider().Location())))
	}
	b.WriteString("\n")

	b.WriteString("Totals:\n")
	fmt.Fprintf(&b, "  Screen Time: %s\n",
		util.Colorize(util.FormatActivityDuration(snapshot.TotalActivityDurationSeconds), util.ColorCyan, color))
	fmt.Fprintf(&b, "  Pickups: %s\n", formatNumber(snapshot.TotalPickups))
	fmt.Fprintf(&b, "  Notifications: %s\n", formatNumber(snapshot.TotalNotifications))
	b.WriteString("\n")

	if len(snapshot.Applications) > 0 {
		b.WriteString("Top Applications:\n")
		b.WriteString(strings.Repeat("-", summaryWidth) + "\n")
		for i, app := range snapshot.Applications {
			if i == summaryTopApps {
				break
			}
			fmt.Fprintf(&b, "  %d. %s %s %s\n", i+1,
				util.PadRight(app.DisplayName(), 30),
				util.PadLeft(util.FormatActivityDuration(app.DurationSeconds), 14),
				util.Colorize(util.FormatPercentage(app.DurationSeconds, snapshot.TotalActivityDurationSeconds), util.ColorGreen, color))
		}
		b.WriteString("\n")
	}

	if len(snapshot.Categories) > 0 {
		b.WriteString("Categories:\n")
		b.WriteString(strings.Repeat("-", summaryWidth) + "\n")
		for _, category := range snapshot.Categories {
			fmt.Fprintf(&b, "  %s %s\n",
				util.PadRight(category.DisplayName(), 33),
				util.PadLeft(util.FormatActivityDuration(category.DurationSeconds), 14))
		}
		b.WriteString("\n")
	}

	b.WriteString(strings.Repeat("=", summaryWidth) + "\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// FormatViewState prints the persisted view-state of a context.
func (f *SummaryFormatter) FormatViewState(w io.Writer, state model.ViewState) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Context: %s\n", state.Context)
	r := state.Range()
	fmt.Fprintf(&b, "Range: %s (%s)\n", formatRange(r.From, r.To), util.FormatActivityDuration(r.Width()))
	fmt.Fprintf(&b, "Segmentation: %s\n", state.Segmentation)
	if state.GeneratedAt != "" {
		fmt.Fprintf(&b, "Updated: %s\n", state.GeneratedAt)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatRange(from, to float64) string {
	tp := util.GetTimeProvider()
	return fmt.Sprintf("%s to %s",
		tp.Format(util.FromUnixSeconds(from), rangeTimeLayout),
		tp.Format(util.FromUnixSeconds(to), rangeTimeLayout))
}
