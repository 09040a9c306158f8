package normalize

import (
	"strings"
)

// ContextSanitizer canonicalizes report-context identifiers.
type ContextSanitizer struct {
	defaultContext string
}

// NewContextSanitizer returns a sanitizer falling back to defaultContext.
func NewContextSanitizer(defaultContext string) ContextSanitizer {
	return ContextSanitizer{defaultContext: strings.TrimSpace(defaultContext)}
}

// Sanitize trims surrounding whitespace, newlines included. Nil or blank
// input yields the default context.
func (s ContextSanitizer) Sanitize(raw *string) string {
	if raw == nil {
		return s.defaultContext
	}
	return s.SanitizeString(*raw)
}

// SanitizeString is Sanitize for a value that is always present.
func (s ContextSanitizer) SanitizeString(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return s.defaultContext
	}
	return trimmed
}

// Default returns the fallback context.
func (s ContextSanitizer) Default() string {
	return s.defaultContext
}
