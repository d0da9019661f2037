// Package eligibility decides, for one candidate profile, which resolved
// offerings the candidate qualifies for and by how much they fall short.
package eligibility

import (
	"unimatch/internal/catalog"
	"unimatch/internal/profile"
)

// Profile is the read side of a candidate profile the matcher needs.
type Profile interface {
	AggregateScore() int
	ContributingSubjectCount() int
	MinimumSubjects() int
	IsReadyForMatching() bool
	CanonicalSubject(name string) (profile.Subject, bool)
}

// Evaluate checks every offering against the profile and returns one result
// per offering, in offering order.
//
// An incomplete profile yields StatusProfileIncomplete, no results and
// ErrProfileIncomplete. No eligibility flag is ever computed for it.
// This is pure domain logic - no I/O, no shared state.
func Evaluate(p Profile, offerings []catalog.Offering) (Evaluation, error) {
	eval := Evaluation{
		AggregateScore:           p.AggregateScore(),
		ContributingSubjectCount: p.ContributingSubjectCount(),
		MinimumSubjects:          p.MinimumSubjects(),
	}
	if !p.IsReadyForMatching() {
		eval.Status = StatusProfileIncomplete
		return eval, ErrProfileIncomplete
	}

	eval.Status = StatusEvaluated
	eval.Results = make([]Result, 0, len(offerings))
	for _, o := range offerings {
		eval.Results = append(eval.Results, evaluateOffering(p, eval.AggregateScore, o))
	}
	return eval, nil
}

func evaluateOffering(p Profile, aggregate int, o catalog.Offering) Result {
	minimum := o.Rule.MinimumAggregateScore
	r := Result{
		Offering:            o,
		MeetsAggregateScore: aggregate >= minimum,
		ScoreGap:            max(0, minimum-aggregate),
		Tier:                TierFor(minimum),
	}

	for _, req := range o.Rule.RequiredSubjects {
		shortfall, ok := checkRequirement(p, req)
		if ok {
			continue
		}
		if req.Mandatory {
			r.Shortfalls = append(r.Shortfalls, shortfall)
		} else {
			r.Advisories = append(r.Advisories, shortfall)
		}
	}

	r.MeetsSubjectRequirements = len(r.Shortfalls) == 0
	r.Eligible = r.MeetsAggregateScore && r.MeetsSubjectRequirements
	return r
}

// checkRequirement expects req.Name to be canonical already; the registry
// resolves requirement names through the catalog taxonomy at load time.
func checkRequirement(p Profile, req catalog.RequiredSubject) (SubjectShortfall, bool) {
	s, found := p.CanonicalSubject(req.Name)
	if !found {
		return SubjectShortfall{Subject: req.Name, RequiredLevel: req.MinimumLevel, Missing: true}, false
	}
	if s.Level >= req.MinimumLevel {
		return SubjectShortfall{}, true
	}
	return SubjectShortfall{Subject: s.Name, RequiredLevel: req.MinimumLevel, ActualLevel: s.Level}, false
}
