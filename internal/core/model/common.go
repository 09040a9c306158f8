package model

// Sentinel keys used when an activity record carries no usable identity.
const (
	UnknownApplication = "unknown-application"
	UnknownCategory    = "unknown-category"
)

// SnapshotVersion is the schema tag written into every snapshot.
const SnapshotVersion = 1

// Snapshot list caps. Totals are always computed over every bucket.
const (
	MaxSnapshotApplications = 25
	MaxSnapshotCategories   = 15
)

// Segmentation is the time-bucketing granularity applied to a report range.
type Segmentation string

const (
	SegmentationHourly Segmentation = "hourly"
	SegmentationDaily  Segmentation = "daily"
	SegmentationWeekly Segmentation = "weekly"
)

// ParseSegmentation maps a raw value onto a Segmentation; anything
// unrecognized becomes daily.
func ParseSegmentation(raw string) Segmentation {
	switch Segmentation(raw) {
	case SegmentationHourly:
		return SegmentationHourly
	case SegmentationWeekly:
		return SegmentationWeekly
	default:
		return SegmentationDaily
	}
}

// ParseSegmentationPtr is ParseSegmentation for optional input.
func ParseSegmentationPtr(raw *string) Segmentation {
	if raw == nil {
		return SegmentationDaily
	}
	return ParseSegmentation(*raw)
}

func (s Segmentation) String() string {
	return string(s)
}

// DateRange is a report interval in Unix seconds. A normalized range always
// has From < To.
type DateRange struct {
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

// Width returns To - From in seconds.
func (r DateRange) Width() float64 {
	return r.To - r.From
}
