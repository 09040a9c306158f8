package util

import (
	"fmt"
	"math"
	"strings"
	"time"
)

func FormatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	} else if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000)
}

// FormatActivityDuration renders seconds as an abbreviated label such as
// "1d 2h 3m 4s". Zero components are dropped; zero renders as "0s".
func FormatActivityDuration(seconds float64) string {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 1 {
		return "0s"
	}

	total := int64(math.MaxInt64)
	if seconds < math.MaxInt64 {
		total = int64(seconds)
	}
	units := []struct {
		suffix string
		size   int64
	}{
		{"d", 86400},
		{"h", 3600},
		{"m", 60},
		{"s", 1},
	}

	parts := make([]string, 0, len(units))
	for _, unit := range units {
		if n := total / unit.size; n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, unit.suffix))
			total -= n * unit.size
		}
	}
	return strings.Join(parts, " ")
}

// FormatGeneratedAt renders an abbreviated date with a short time,
// e.g. "Feb 6, 2026 at 2:30 PM".
func FormatGeneratedAt(t time.Time) string {
	return t.Format("Jan 2, 2006 at 3:04 PM")
}

// FormatPercentage renders part/total as a percentage with one decimal.
func FormatPercentage(part, total float64) string {
	if total <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", part/total*100)
}
