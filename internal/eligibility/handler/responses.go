package handler

import (
	"time"

	"unimatch/internal/catalog"
	"unimatch/internal/eligibility"
	"unimatch/internal/eligibility/report"
	"unimatch/internal/eligibility/service"
	"unimatch/internal/profile"
	"unimatch/internal/subject"
)

// EvaluateResponse is the HTTP response for POST /v1/eligibility/evaluate.
type EvaluateResponse struct {
	ID                       string            `json:"id"`
	Status                   string            `json:"status"`
	CatalogVersion           string            `json:"catalog_version"`
	AggregateScore           int               `json:"aggregate_score"`
	ContributingSubjectCount int               `json:"contributing_subject_count"`
	MinimumSubjects          int               `json:"minimum_subjects"`
	Subjects                 []profile.Subject `json:"subjects"`
	Summary                  report.Summary    `json:"summary"`
	Groups                   []GroupResponse   `json:"groups"`
	NearMisses               []ResultResponse  `json:"near_misses"`
	EvaluatedAt              time.Time         `json:"evaluated_at"`
}

// GroupResponse is one category of results.
type GroupResponse struct {
	Category string           `json:"category"`
	Total    int              `json:"total"`
	Eligible int              `json:"eligible"`
	Results  []ResultResponse `json:"results"`
}

// ResultResponse flattens one eligibility result.
type ResultResponse struct {
	InstitutionCode          string                         `json:"institution_code"`
	InstitutionName          string                         `json:"institution_name"`
	Program                  string                         `json:"program"`
	Category                 string                         `json:"category"`
	Duration                 string                         `json:"duration,omitempty"`
	MinimumAggregateScore    int                            `json:"minimum_aggregate_score"`
	Eligible                 bool                           `json:"eligible"`
	MeetsAggregateScore      bool                           `json:"meets_aggregate_score"`
	MeetsSubjectRequirements bool                           `json:"meets_subject_requirements"`
	ScoreGap                 int                            `json:"score_gap"`
	CompetitivenessTier      eligibility.Tier               `json:"competitiveness_tier"`
	Shortfalls               []eligibility.SubjectShortfall `json:"shortfalls,omitempty"`
	Advisories               []eligibility.SubjectShortfall `json:"advisories,omitempty"`
}

// FromReport converts a service report to an HTTP response.
func FromReport(rep *service.Report) *EvaluateResponse {
	resp := &EvaluateResponse{
		ID:                       rep.ID,
		Status:                   string(eligibility.StatusEvaluated),
		CatalogVersion:           rep.CatalogVersion,
		AggregateScore:           rep.AggregateScore,
		ContributingSubjectCount: rep.ContributingSubjectCount,
		MinimumSubjects:          rep.MinimumSubjects,
		Subjects:                 rep.Subjects,
		Summary:                  rep.Summary,
		Groups:                   make([]GroupResponse, 0, len(rep.Groups)),
		NearMisses:               fromResults(rep.NearMisses),
		EvaluatedAt:              rep.EvaluatedAt,
	}
	for _, g := range rep.Groups {
		resp.Groups = append(resp.Groups, GroupResponse{
			Category: g.Category,
			Total:    g.Total,
			Eligible: g.Eligible,
			Results:  fromResults(g.Results),
		})
	}
	return resp
}

func fromResults(results []eligibility.Result) []ResultResponse {
	out := make([]ResultResponse, 0, len(results))
	for _, r := range results {
		out = append(out, ResultResponse{
			InstitutionCode:          r.Offering.Institution.ShortCode,
			InstitutionName:          r.Offering.Institution.DisplayName,
			Program:                  r.Offering.Rule.ProgramName,
			Category:                 r.Offering.Rule.Category,
			Duration:                 r.Offering.Rule.DurationLabel,
			MinimumAggregateScore:    r.Offering.Rule.MinimumAggregateScore,
			Eligible:                 r.Eligible,
			MeetsAggregateScore:      r.MeetsAggregateScore,
			MeetsSubjectRequirements: r.MeetsSubjectRequirements,
			ScoreGap:                 r.ScoreGap,
			CompetitivenessTier:      r.Tier,
			Shortfalls:               r.Shortfalls,
			Advisories:               r.Advisories,
		})
	}
	return out
}

// CatalogResponse is the HTTP response for GET /v1/catalog.
type CatalogResponse struct {
	Version      string                `json:"version"`
	ResolvedAt   time.Time             `json:"resolved_at"`
	Institutions []catalog.Institution `json:"institutions"`
	Programs     int                   `json:"programs"`
	Offerings    int                   `json:"offerings"`
	Categories   []string              `json:"categories"`
	Warnings     []catalog.Warning     `json:"warnings"`
}

func fromCatalog(info *service.CatalogInfo) *CatalogResponse {
	warnings := info.Warnings
	if warnings == nil {
		warnings = []catalog.Warning{}
	}
	return &CatalogResponse{
		Version:      info.Version,
		ResolvedAt:   info.ResolvedAt,
		Institutions: info.Institutions,
		Programs:     info.Programs,
		Offerings:    info.Offerings,
		Categories:   info.Categories,
		Warnings:     warnings,
	}
}

// OfferingResponse is one row of GET /v1/catalog/offerings.
type OfferingResponse struct {
	InstitutionCode       string                    `json:"institution_code"`
	InstitutionName       string                    `json:"institution_name"`
	Program               string                    `json:"program"`
	Category              string                    `json:"category"`
	Duration              string                    `json:"duration,omitempty"`
	MinimumAggregateScore int                       `json:"minimum_aggregate_score"`
	CompetitivenessTier   eligibility.Tier          `json:"competitiveness_tier"`
	RequiredSubjects      []catalog.RequiredSubject `json:"required_subjects"`
}

// OfferingsResponse is a page of offerings.
type OfferingsResponse struct {
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Total    int                `json:"total"`
	Pages    int                `json:"pages"`
	Items    []OfferingResponse `json:"items"`
}

func fromOfferings(page report.Page[catalog.Offering]) *OfferingsResponse {
	resp := &OfferingsResponse{
		Page:     page.Number,
		PageSize: page.Size,
		Total:    page.Total,
		Pages:    page.Pages,
		Items:    make([]OfferingResponse, 0, len(page.Items)),
	}
	for _, o := range page.Items {
		reqs := o.Rule.RequiredSubjects
		if reqs == nil {
			reqs = []catalog.RequiredSubject{}
		}
		resp.Items = append(resp.Items, OfferingResponse{
			InstitutionCode:       o.Institution.ShortCode,
			InstitutionName:       o.Institution.DisplayName,
			Program:               o.Rule.ProgramName,
			Category:              o.Rule.Category,
			Duration:              o.Rule.DurationLabel,
			MinimumAggregateScore: o.Rule.MinimumAggregateScore,
			CompetitivenessTier:   eligibility.TierFor(o.Rule.MinimumAggregateScore),
			RequiredSubjects:      reqs,
		})
	}
	return resp
}

// SubjectsResponse is the HTTP response for GET /v1/subjects.
type SubjectsResponse struct {
	Subjects []subject.Definition `json:"subjects"`
	Bands    []subject.Band       `json:"bands"`
}
