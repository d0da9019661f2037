package eligibility

import (
	"unimatch/internal/catalog"
	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
)

// Tier is a program's competitiveness, derived only from its minimum score.
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
)

// Tier thresholds on the program's minimum aggregate score.
const (
	HighTierMinimum     = 40
	ModerateTierMinimum = 35
)

// TierFor classifies a program by its minimum aggregate score. It does not
// depend on any candidate.
func TierFor(minimumAggregateScore int) Tier {
	switch {
	case minimumAggregateScore >= HighTierMinimum:
		return TierHigh
	case minimumAggregateScore >= ModerateTierMinimum:
		return TierModerate
	default:
		return TierLow
	}
}

// Status distinguishes a usable evaluation from one blocked by an
// incomplete profile.
type Status string

const (
	StatusEvaluated         Status = "evaluated"
	StatusProfileIncomplete Status = "profile_incomplete"
)

// ErrProfileIncomplete blocks matching until enough contributing subjects
// are entered. Callers must surface it instead of a results table.
var ErrProfileIncomplete = dErrors.New(dErrors.CodeProfileIncomplete, "profile does not have enough contributing subjects for matching")

// SubjectShortfall explains one unmet subject requirement.
type SubjectShortfall struct {
	Subject       string        `json:"subject"`
	RequiredLevel subject.Level `json:"required_level"`
	// ActualLevel is zero when the candidate has not entered the subject.
	ActualLevel subject.Level `json:"actual_level"`
	Missing     bool          `json:"missing"`
}

// Result is the eligibility of one candidate for one offering.
// It is a projection of (profile, catalog snapshot) and is never patched.
type Result struct {
	Offering                 catalog.Offering `json:"offering"`
	MeetsAggregateScore      bool             `json:"meets_aggregate_score"`
	MeetsSubjectRequirements bool             `json:"meets_subject_requirements"`
	Eligible                 bool             `json:"eligible"`
	ScoreGap                 int              `json:"score_gap"`
	Tier                     Tier             `json:"competitiveness_tier"`
	// Shortfalls lists the mandatory requirements that were not met.
	Shortfalls []SubjectShortfall `json:"shortfalls,omitempty"`
	// Advisories lists optional requirements the candidate does not meet.
	// They never affect Eligible.
	Advisories []SubjectShortfall `json:"advisories,omitempty"`
}

// Evaluation is the matcher's output. Results is empty unless Status is
// StatusEvaluated.
type Evaluation struct {
	Status                   Status   `json:"status"`
	AggregateScore           int      `json:"aggregate_score"`
	ContributingSubjectCount int      `json:"contributing_subject_count"`
	MinimumSubjects          int      `json:"minimum_subjects"`
	Results                  []Result `json:"results,omitempty"`
}
