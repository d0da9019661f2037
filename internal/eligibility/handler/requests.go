package handler

import (
	"fmt"
	"strings"

	"unimatch/internal/eligibility/report"
	"unimatch/internal/profile"
	dErrors "unimatch/pkg/domain-errors"
)

const (
	maxSubjects          = 30
	maxSubjectNameLength = 100
)

// EvaluateRequest is the HTTP request body for POST /v1/eligibility/evaluate.
type EvaluateRequest struct {
	Subjects []SubjectEntry `json:"subjects"`
	SortBy   string         `json:"sort_by"`
	Filter   FilterRequest  `json:"filter"`

	// Parsed values (populated by Validate)
	parsedSort report.SortKey
}

// SubjectEntry is one entered subject result.
type SubjectEntry struct {
	Name string `json:"name"`
	Mark int    `json:"mark"`
}

// FilterRequest narrows the returned results.
type FilterRequest struct {
	Category     string `json:"category"`
	Institution  string `json:"institution"`
	EligibleOnly bool   `json:"eligible_only"`
}

// Normalize trims free-text fields.
func (r *EvaluateRequest) Normalize() {
	if r == nil {
		return
	}
	for i := range r.Subjects {
		r.Subjects[i].Name = strings.TrimSpace(r.Subjects[i].Name)
	}
	r.SortBy = strings.TrimSpace(r.SortBy)
	r.Filter.Category = strings.TrimSpace(r.Filter.Category)
	r.Filter.Institution = strings.TrimSpace(r.Filter.Institution)
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *EvaluateRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	// Size validation (fail fast)
	if len(r.Subjects) > maxSubjects {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("at most %d subjects may be entered", maxSubjects))
	}

	if len(r.Subjects) == 0 {
		return dErrors.New(dErrors.CodeValidation, "subjects are required")
	}
	for i, s := range r.Subjects {
		if s.Name == "" {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("subjects[%d].name is required", i))
		}
		if len(s.Name) > maxSubjectNameLength {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("subjects[%d].name must be at most %d characters", i, maxSubjectNameLength))
		}
	}

	sortKey, err := report.ParseSortKey(r.SortBy)
	if err != nil {
		return err
	}
	r.parsedSort = sortKey
	return nil
}

// Entries converts the subjects for the profile builder.
func (r *EvaluateRequest) Entries() []profile.Entry {
	out := make([]profile.Entry, 0, len(r.Subjects))
	for _, s := range r.Subjects {
		out = append(out, profile.Entry{Name: s.Name, Mark: s.Mark})
	}
	return out
}

// ParsedSort returns the validated sort key.
func (r *EvaluateRequest) ParsedSort() report.SortKey {
	return r.parsedSort
}

// ParsedFilter returns the result filter.
func (r *EvaluateRequest) ParsedFilter() report.Filter {
	return report.Filter{
		Category:        r.Filter.Category,
		InstitutionCode: r.Filter.Institution,
		EligibleOnly:    r.Filter.EligibleOnly,
	}
}
