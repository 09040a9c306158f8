package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplicationKey(t *testing.T) {
	tests := []struct {
		name     string
		record   ActivityRecord
		expected string
	}{
		{
			name:     "no application",
			record:   ActivityRecord{},
			expected: UnknownApplication,
		},
		{
			name: "bundle identifier wins",
			record: ActivityRecord{Application: &Application{
				BundleIdentifier:     StringPtr("com.app.a"),
				LocalizedDisplayName: StringPtr("App A"),
			}},
			expected: "com.app.a",
		},
		{
			name: "display name fallback",
			record: ActivityRecord{Application: &Application{
				LocalizedDisplayName: StringPtr("App A"),
			}},
			expected: "App A",
		},
		{
			name: "empty bundle identifier falls through",
			record: ActivityRecord{Application: &Application{
				BundleIdentifier:     StringPtr(""),
				LocalizedDisplayName: StringPtr("App A"),
			}},
			expected: "App A",
		},
		{
			name:     "empty application",
			record:   ActivityRecord{Application: &Application{}},
			expected: UnknownApplication,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.ApplicationKey())
		})
	}
}

func TestCategoryKey(t *testing.T) {
	assert.Equal(t, UnknownCategory, ActivityRecord{}.CategoryKey())
	assert.Equal(t, UnknownCategory, ActivityRecord{Category: &Category{}}.CategoryKey())
	assert.Equal(t, "Games", ActivityRecord{Category: &Category{LocalizedDisplayName: StringPtr("Games")}}.CategoryKey())
}

func TestBucketDisplayName(t *testing.T) {
	assert.Equal(t, UnknownApplication, ApplicationBucket{}.DisplayName())
	assert.Equal(t, "com.app.a", ApplicationBucket{BundleIdentifier: StringPtr("com.app.a")}.DisplayName())
	assert.Equal(t, "App A", ApplicationBucket{
		BundleIdentifier:     StringPtr("com.app.a"),
		LocalizedDisplayName: StringPtr("App A"),
	}.DisplayName())

	assert.Equal(t, UnknownCategory, CategoryBucket{}.DisplayName())
	assert.Equal(t, "Social", CategoryBucket{LocalizedDisplayName: StringPtr("Social")}.DisplayName())
}

func TestViewStateRange(t *testing.T) {
	v := ViewState{From: 10, To: 20}
	assert.Equal(t, DateRange{From: 10, To: 20}, v.Range())
}
