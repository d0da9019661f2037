// Package report groups, sorts, filters and summarizes eligibility results.
// Everything here is post-processing over already computed results; nothing
// re-runs the matcher.
package report

import (
	"fmt"
	"slices"
	"strings"

	"unimatch/internal/catalog"
	"unimatch/internal/eligibility"
	dErrors "unimatch/pkg/domain-errors"
)

// SortKey orders results within a category.
type SortKey string

const (
	// SortByScore puts eligible offerings first, then ascending minimum score.
	SortByScore       SortKey = "score"
	SortByProgram     SortKey = "program"
	SortByInstitution SortKey = "institution"
)

// ParseSortKey maps user input to a SortKey. Empty input means SortByScore.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortByScore:
		return SortByScore, nil
	case SortByProgram:
		return SortByProgram, nil
	case SortByInstitution:
		return SortByInstitution, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown sort key %q", s))
	}
}

// Group is one category bucket.
type Group struct {
	Category string               `json:"category"`
	Total    int                  `json:"total"`
	Eligible int                  `json:"eligible"`
	Results  []eligibility.Result `json:"results"`
}

// GroupByCategory partitions results into category buckets in order of first
// appearance and sorts each bucket by key. Ties keep input order.
func GroupByCategory(results []eligibility.Result, key SortKey) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, r := range results {
		cat := r.Offering.Rule.Category
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, Group{Category: cat})
		}
		groups[i].Results = append(groups[i].Results, r)
		groups[i].Total++
		if r.Eligible {
			groups[i].Eligible++
		}
	}
	for i := range groups {
		Sort(groups[i].Results, key)
	}
	return groups
}

// Sort orders results in place by key using a stable sort.
func Sort(results []eligibility.Result, key SortKey) {
	slices.SortStableFunc(results, compareFor(key))
}

func compareFor(key SortKey) func(a, b eligibility.Result) int {
	switch key {
	case SortByProgram:
		return func(a, b eligibility.Result) int {
			return compareFold(a.Offering.Rule.ProgramName, b.Offering.Rule.ProgramName)
		}
	case SortByInstitution:
		return func(a, b eligibility.Result) int {
			return compareFold(a.Offering.Institution.DisplayName, b.Offering.Institution.DisplayName)
		}
	default:
		return func(a, b eligibility.Result) int {
			if a.Eligible != b.Eligible {
				if a.Eligible {
					return -1
				}
				return 1
			}
			return a.Offering.Rule.MinimumAggregateScore - b.Offering.Rule.MinimumAggregateScore
		}
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Summary is the headline statistics of an evaluation.
type Summary struct {
	TotalOfferings                    int                      `json:"total_offerings"`
	EligibleCount                     int                      `json:"eligible_count"`
	DistinctInstitutionsAmongEligible int                      `json:"distinct_institutions_among_eligible"`
	EligibleByTier                    map[eligibility.Tier]int `json:"eligible_by_tier"`
	Categories                        []CategorySummary        `json:"categories"`
}

// CategorySummary counts one category.
type CategorySummary struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
	Eligible int    `json:"eligible"`
}

// Summarize computes counts over results.
func Summarize(results []eligibility.Result) Summary {
	s := Summary{
		TotalOfferings: len(results),
		EligibleByTier: map[eligibility.Tier]int{
			eligibility.TierLow:      0,
			eligibility.TierModerate: 0,
			eligibility.TierHigh:     0,
		},
	}
	institutions := make(map[string]struct{})
	index := make(map[string]int)
	for _, r := range results {
		cat := r.Offering.Rule.Category
		i, ok := index[cat]
		if !ok {
			i = len(s.Categories)
			index[cat] = i
			s.Categories = append(s.Categories, CategorySummary{Category: cat})
		}
		s.Categories[i].Total++
		if !r.Eligible {
			continue
		}
		s.Categories[i].Eligible++
		s.EligibleCount++
		s.EligibleByTier[r.Tier]++
		institutions[strings.ToUpper(r.Offering.Institution.ShortCode)] = struct{}{}
	}
	s.DistinctInstitutionsAmongEligible = len(institutions)
	return s
}

// Filter selects results. Zero-valued fields do not filter.
type Filter struct {
	Category        string `json:"category,omitempty"`
	InstitutionCode string `json:"institution,omitempty"`
	EligibleOnly    bool   `json:"eligible_only,omitempty"`
}

// Apply returns the results matching f in their original order.
func (f Filter) Apply(results []eligibility.Result) []eligibility.Result {
	out := make([]eligibility.Result, 0, len(results))
	for _, r := range results {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single result passes the filter.
func (f Filter) Matches(r eligibility.Result) bool {
	if f.EligibleOnly && !r.Eligible {
		return false
	}
	return f.MatchesOffering(r.Offering)
}

// MatchesOffering applies the category and institution fields only.
func (f Filter) MatchesOffering(o catalog.Offering) bool {
	if f.Category != "" && !strings.EqualFold(strings.TrimSpace(f.Category), o.Rule.Category) {
		return false
	}
	if f.InstitutionCode != "" && !strings.EqualFold(strings.TrimSpace(f.InstitutionCode), o.Institution.ShortCode) {
		return false
	}
	return true
}

// NearMisses returns ineligible results that meet every mandatory subject
// requirement and fall short on score by at most maxGap points, closest first.
func NearMisses(results []eligibility.Result, maxGap int) []eligibility.Result {
	var out []eligibility.Result
	for _, r := range results {
		if !r.Eligible && r.MeetsSubjectRequirements && r.ScoreGap <= maxGap {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b eligibility.Result) int {
		return a.ScoreGap - b.ScoreGap
	})
	return out
}

// Page is one slice of a list.
type Page[T any] struct {
	Number int `json:"page"`
	Size   int `json:"page_size"`
	Total  int `json:"total"`
	Pages  int `json:"pages"`
	Items  []T `json:"items"`
}

// Paginate slices items into 1-based pages. Pages past the end are empty.
func Paginate[T any](items []T, page, size int) (Page[T], error) {
	if page < 1 {
		return Page[T]{}, dErrors.New(dErrors.CodeValidation, "page must be at least 1")
	}
	if size < 1 {
		return Page[T]{}, dErrors.New(dErrors.CodeValidation, "page size must be at least 1")
	}
	p := Page[T]{
		Number: page,
		Size:   size,
		Total:  len(items),
		Pages:  len(items) / size,
		Items:  []T{},
	}
	if len(items)%size != 0 {
		p.Pages++
	}
	// Checked before multiplying so a huge page number cannot overflow.
	if page > p.Pages {
		return p, nil
	}
	start := (page - 1) * size
	end := min(start+size, len(items))
	p.Items = items[start:end]
	return p, nil
}
