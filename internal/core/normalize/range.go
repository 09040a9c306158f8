package normalize

import (
	"math"

	"github.com/penwyp/go-activity-report/internal/core/model"
)

// MinRangeWidth is the width given to a range whose endpoints coincide. The
// host rejects zero-width intervals.
const MinRangeWidth = 1.0

// Range canonicalizes an optional (from, to) pair of Unix seconds. Missing or
// non-finite values count as 0, reversed values are swapped and equal values
// are widened by MinRangeWidth, so the result always has From < To.
func Range(from, to *float64) model.DateRange {
	var f, t float64
	if from != nil {
		f = *from
	}
	if to != nil {
		t = *to
	}
	return RangeValues(f, t)
}

// RangeValues is Range for values that are always present.
func RangeValues(from, to float64) model.DateRange {
	from = finiteOrZero(from)
	to = finiteOrZero(to)

	if from > to {
		from, to = to, from
	}
	if from == to {
		to = from + MinRangeWidth
	}
	return model.DateRange{From: from, To: to}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
