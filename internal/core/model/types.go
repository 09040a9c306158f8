package model

// Application identifies the app an activity record belongs to. Either field
// may be missing when the host cannot resolve it.
type Application struct {
	BundleIdentifier     *string `json:"bundleIdentifier,omitempty"`
	LocalizedDisplayName *string `json:"localizedDisplayName,omitempty"`
}

// Category identifies the category an activity record belongs to.
type Category struct {
	LocalizedDisplayName *string `json:"localizedDisplayName,omitempty"`
}

// ActivityRecord is one raw usage record supplied by the host.
type ActivityRecord struct {
	DurationSeconds float64      `json:"durationSeconds"`
	Application     *Application `json:"application,omitempty"`
	Category        *Category    `json:"category,omitempty"`
	Pickups         int          `json:"pickups"`
	Notifications   int          `json:"notifications"`
}

// ApplicationKey resolves the bucket key: bundle id, then display name, then
// the unknown-application sentinel.
func (r ActivityRecord) ApplicationKey() string {
	if r.Application != nil {
		if r.Application.BundleIdentifier != nil && *r.Application.BundleIdentifier != "" {
			return *r.Application.BundleIdentifier
		}
		if r.Application.LocalizedDisplayName != nil && *r.Application.LocalizedDisplayName != "" {
			return *r.Application.LocalizedDisplayName
		}
	}
	return UnknownApplication
}

// CategoryKey resolves the bucket key: display name, then the
// unknown-category sentinel.
func (r ActivityRecord) CategoryKey() string {
	if r.Category != nil && r.Category.LocalizedDisplayName != nil && *r.Category.LocalizedDisplayName != "" {
		return *r.Category.LocalizedDisplayName
	}
	return UnknownCategory
}

// ApplicationBucket accumulates usage for one application key.
type ApplicationBucket struct {
	BundleIdentifier     *string `json:"bundleIdentifier,omitempty"`
	LocalizedDisplayName *string `json:"localizedDisplayName,omitempty"`
	DurationSeconds      float64 `json:"durationSeconds"`
	Pickups              int     `json:"pickups"`
	Notifications        int     `json:"notifications"`
}

// DisplayName returns the best human-readable label for the bucket.
func (b ApplicationBucket) DisplayName() string {
	if b.LocalizedDisplayName != nil && *b.LocalizedDisplayName != "" {
		return *b.LocalizedDisplayName
	}
	if b.BundleIdentifier != nil && *b.BundleIdentifier != "" {
		return *b.BundleIdentifier
	}
	return UnknownApplication
}

// CategoryBucket accumulates usage for one category key.
type CategoryBucket struct {
	LocalizedDisplayName *string `json:"localizedDisplayName,omitempty"`
	DurationSeconds      float64 `json:"durationSeconds"`
}

// DisplayName returns the category label or the unknown-category sentinel.
func (b CategoryBucket) DisplayName() string {
	if b.LocalizedDisplayName != nil && *b.LocalizedDisplayName != "" {
		return *b.LocalizedDisplayName
	}
	return UnknownCategory
}

// Snapshot is the bounded summary of activity persisted for a report context.
type Snapshot struct {
	Version                      int                 `json:"version"`
	Context                      string              `json:"context"`
	GeneratedAt                  string              `json:"generatedAt"`
	From                         float64             `json:"from"`
	To                           float64             `json:"to"`
	Segmentation                 Segmentation        `json:"segmentation"`
	TotalActivityDurationSeconds float64             `json:"totalActivityDurationSeconds"`
	TotalPickups                 int                 `json:"totalPickups"`
	TotalNotifications           int                 `json:"totalNotifications"`
	Applications                 []ApplicationBucket `json:"applications"`
	Categories                   []CategoryBucket    `json:"categories"`

	// Extra holds keys this version does not recognize. They survive a
	// decode/encode cycle untouched.
	Extra map[string]any `json:"-"`
}

// ViewState is the configuration the extension reads to know which range
// and segmentation to aggregate over.
type ViewState struct {
	Context      string       `json:"context"`
	From         float64      `json:"from"`
	To           float64      `json:"to"`
	Segmentation Segmentation `json:"segmentation"`
	GeneratedAt  string       `json:"generatedAt"`
}

// Range returns the view-state interval.
func (v ViewState) Range() DateRange {
	return DateRange{From: v.From, To: v.To}
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
