// Package strings provides string manipulation utilities shared by the
// taxonomy and catalog layers.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{"  Maths ", "Math", "Maths", "", "  "})
//	// Returns: []string{"Maths", "Math"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// DedupeAndTrimUpper is like DedupeAndTrim but also uppercases each element.
// Institution short codes are compared this way.
//
// Example:
//
//	DedupeAndTrimUpper([]string{" uct", "UWC", "Uct"})
//	// Returns: []string{"UCT", "UWC"}
func DedupeAndTrimUpper(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToUpper(strings.TrimSpace(v))
	})
}

// Collapse trims s and squeezes internal runs of whitespace to one space.
func Collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// FoldKey produces a comparison key: hyphens, underscores and dots become
// spaces, whitespace is collapsed and the result is lowercased.
//
// Example:
//
//	FoldKey("  B.Sc  Computer-Science ")
//	// Returns: "b sc computer science"
func FoldKey(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ", ".", " ").Replace(s)
	return strings.ToLower(Collapse(s))
}

func dedupe(values []string, norm func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}
