package report

import (
	"strconv"
	"strings"
)

// MinimumIOSMajorVersion is the first iOS release with report extensions.
const MinimumIOSMajorVersion = 16

// Platform identifies the host OS, e.g. {OS: "ios", Version: "17.2"}.
type Platform struct {
	OS      string
	Version string
}

// IsReportAvailable reports whether the host can embed an activity report.
func IsReportAvailable(p Platform) bool {
	if !strings.EqualFold(strings.TrimSpace(p.OS), "ios") {
		return false
	}
	major, _, _ := strings.Cut(strings.TrimSpace(p.Version), ".")
	n, err := strconv.Atoi(major)
	if err != nil {
		return false
	}
	return n >= MinimumIOSMajorVersion
}
