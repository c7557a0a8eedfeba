package validation

import (
	"regexp"
	"strings"
)

// StatePattern defines the valid state code format: two uppercase letters.
var StatePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// AudienceNamePattern defines the valid audience name format: letters,
// numbers, spaces, hyphens, and underscores.
var AudienceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// NormalizeStateCode uppercases and trims a state code so dataset lookups
// are case-insensitive.
func NormalizeStateCode(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

// ValidateStateCode checks if a state code is a two-letter abbreviation.
// Callers normalize first.
func ValidateStateCode(state string) bool {
	return StatePattern.MatchString(state)
}

// ValidateAudienceName checks if an audience name matches the allowed
// pattern and length. Names end up in download filenames, so path
// characters are rejected.
func ValidateAudienceName(name string) bool {
	if name == "" || len(name) > 64 {
		return false
	}
	if strings.TrimSpace(name) == "" {
		return false
	}
	return AudienceNamePattern.MatchString(name)
}
