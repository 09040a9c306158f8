package model

import (
	"sort"
	"time"
)

// UserSelection restricts a report to a set of users.
type UserSelection string

const (
	UsersAll      UserSelection = "all"
	UsersChildren UserSelection = "children"
)

// ParseUserSelection maps a raw users value. Unknown values return nil,
// meaning the host should not filter by user at all.
func ParseUserSelection(raw *string) *UserSelection {
	if raw == nil {
		return nil
	}
	var sel UserSelection
	switch UserSelection(*raw) {
	case UsersAll:
		sel = UsersAll
	case UsersChildren:
		sel = UsersChildren
	default:
		return nil
	}
	return &sel
}

// DeviceSelection lists device model raw values, or all devices.
type DeviceSelection struct {
	All    bool  `json:"all"`
	Models []int `json:"models,omitempty"`
}

// DevicesFromRawValues builds a selection from host raw values. No values
// means all devices; duplicates are collapsed.
func DevicesFromRawValues(raw []int) DeviceSelection {
	if len(raw) == 0 {
		return DeviceSelection{All: true}
	}
	seen := make(map[int]struct{}, len(raw))
	models := make([]int, 0, len(raw))
	for _, v := range raw {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		models = append(models, v)
	}
	sort.Ints(models)
	return DeviceSelection{Models: models}
}

// ActivitySelection is the set of opaque application, category and web
// domain tokens picked by the user.
type ActivitySelection struct {
	ApplicationTokens []string `json:"applicationTokens,omitempty"`
	CategoryTokens    []string `json:"categoryTokens,omitempty"`
	WebDomainTokens   []string `json:"webDomainTokens,omitempty"`
}

// Empty reports whether nothing is selected.
func (s ActivitySelection) Empty() bool {
	return len(s.ApplicationTokens) == 0 && len(s.CategoryTokens) == 0 && len(s.WebDomainTokens) == 0
}

// SegmentInterval is the interval the host segments by Segmentation.
type SegmentInterval struct {
	Segmentation Segmentation `json:"segmentation"`
	Start        time.Time    `json:"start"`
	End          time.Time    `json:"end"`
}

// Filter is everything the host needs to query activity for a report.
type Filter struct {
	Segment   SegmentInterval   `json:"segment"`
	Users     *UserSelection    `json:"users,omitempty"`
	Devices   DeviceSelection   `json:"devices"`
	Selection ActivitySelection `json:"selection"`
}
