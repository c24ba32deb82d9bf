package slug

import (
	"regexp"
	"strings"
)

var slugRegexp = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize creates the canonical slug form of a filter value or name.
// Facet values arriving from the query string and values stored in the
// search snapshot must both pass through here so comparisons are exact.
//
// Examples:
//   - "Age Group" → "age-group"
//   - "V-Neck"    → "v-neck"
//   - "  NAVY  "  → "navy"
func Normalize(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = slugRegexp.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}

	return s
}

// NormalizeSet slug-normalizes every value, drops empties, and deduplicates
// while preserving first-seen order. Used for array-valued filter inputs.
func NormalizeSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		s := Normalize(v)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
