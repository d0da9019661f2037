// Package catalog owns the program catalog: institutions, program rules,
// their availability policies, and the resolved offerings cache.
package catalog

import (
	"fmt"
	"strings"

	"unimatch/internal/subject"
	pstrings "unimatch/pkg/platform/strings"
)

// Institution is immutable reference data.
type Institution struct {
	ID          string `json:"id" yaml:"id"`
	DisplayName string `json:"display_name" yaml:"display_name"`
	ShortCode   string `json:"short_code" yaml:"short_code"`
}

// AvailabilityKind tags the Availability union.
type AvailabilityKind string

const (
	AvailabilityUniversal   AvailabilityKind = "universal"
	AvailabilityExcludeList AvailabilityKind = "exclude"
	AvailabilityIncludeOnly AvailabilityKind = "include_only"
)

// Availability decides which institutions offer a program.
// Construct it with Universal, ExcludeList or IncludeOnly.
type Availability struct {
	Kind  AvailabilityKind `json:"kind"`
	Codes []string         `json:"codes,omitempty"`
}

// Universal offers the program at every institution.
func Universal() Availability {
	return Availability{Kind: AvailabilityUniversal}
}

// ExcludeList offers the program everywhere except the listed short codes.
func ExcludeList(codes ...string) Availability {
	return Availability{Kind: AvailabilityExcludeList, Codes: pstrings.DedupeAndTrimUpper(codes)}
}

// IncludeOnly offers the program only at the listed short codes.
func IncludeOnly(codes ...string) Availability {
	return Availability{Kind: AvailabilityIncludeOnly, Codes: pstrings.DedupeAndTrimUpper(codes)}
}

// Permits reports whether an institution with the given normalized short
// code offers the program.
func (a Availability) Permits(code string) bool {
	switch a.Kind {
	case AvailabilityUniversal, "":
		return true
	case AvailabilityExcludeList:
		return !a.lists(code)
	case AvailabilityIncludeOnly:
		return a.lists(code)
	default:
		return false
	}
}

func (a Availability) lists(code string) bool {
	for _, c := range a.Codes {
		if normalizeCode(c) == code {
			return true
		}
	}
	return false
}

func (a Availability) String() string {
	if a.Kind == AvailabilityUniversal || a.Kind == "" {
		return string(AvailabilityUniversal)
	}
	return fmt.Sprintf("%s%v", a.Kind, a.Codes)
}

// RequiredSubject is one subject condition on a program.
// Only mandatory requirements decide eligibility.
type RequiredSubject struct {
	Name         string        `json:"name"`
	MinimumLevel subject.Level `json:"minimum_level"`
	Mandatory    bool          `json:"mandatory"`
}

// Rule is a program archetype, authored independently of institutions.
type Rule struct {
	ProgramName           string            `json:"program_name"`
	Category              string            `json:"category"`
	DurationLabel         string            `json:"duration_label"`
	MinimumAggregateScore int               `json:"minimum_aggregate_score"`
	RequiredSubjects      []RequiredSubject `json:"required_subjects,omitempty"`
	Availability          Availability      `json:"availability"`
}

// Offering is a (institution, rule) pair the rule's availability permits.
type Offering struct {
	Institution Institution `json:"institution"`
	Rule        Rule        `json:"program"`
}

// Snapshot is the unit the catalog is versioned and loaded in. It is never
// updated field by field.
type Snapshot struct {
	Version      string               `json:"version"`
	Institutions []Institution        `json:"institutions"`
	Rules        []Rule               `json:"programs"`
	Subjects     []subject.Definition `json:"subjects,omitempty"`
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// programKey is the dedup key for program names within an institution.
func programKey(name string) string {
	return pstrings.FoldKey(name)
}
