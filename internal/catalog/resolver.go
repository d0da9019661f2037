package catalog

// WarningKind classifies a non-fatal resolution finding.
type WarningKind string

const (
	// WarningUnknownInstitutionCode: a rule names a short code that is not in
	// this snapshot. The code is skipped.
	WarningUnknownInstitutionCode WarningKind = "unknown_institution_code"
	// WarningDuplicateOffering: a later rule produced a program already
	// offered by the institution. The later one is dropped.
	WarningDuplicateOffering WarningKind = "duplicate_offering"
)

// Warning records a skipped code or dropped offering.
type Warning struct {
	Kind            WarningKind `json:"kind"`
	ProgramName     string      `json:"program_name"`
	InstitutionCode string      `json:"institution_code"`
}

// CategoryGroup is the set of offerings for one category, in resolution order.
type CategoryGroup struct {
	Category  string     `json:"category"`
	Offerings []Offering `json:"offerings"`
}

// Resolution is the candidate-independent output of Resolve.
type Resolution struct {
	Offerings  []Offering
	Categories []CategoryGroup
	Warnings   []Warning
}

// UnknownCodeCount returns how many unknown-code warnings were recorded.
func (r Resolution) UnknownCodeCount() int {
	return r.countWarnings(WarningUnknownInstitutionCode)
}

// DuplicateCount returns how many offerings were dropped as duplicates.
func (r Resolution) DuplicateCount() int {
	return r.countWarnings(WarningDuplicateOffering)
}

func (r Resolution) countWarnings(kind WarningKind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Resolve materializes the (institution, program) offerings permitted by each
// rule's availability. Rules are visited in order and institutions in order
// within each rule, so the output is deterministic for a given input. The
// first offering of a normalized program name at an institution wins.
//
// Resolve never fails: codes that name no institution are skipped and
// reported as warnings, since snapshots may be partial.
func Resolve(rules []Rule, institutions []Institution) Resolution {
	known := make(map[string]struct{}, len(institutions))
	for _, inst := range institutions {
		known[normalizeCode(inst.ShortCode)] = struct{}{}
	}

	res := Resolution{Offerings: make([]Offering, 0, len(rules)*len(institutions)/2)}
	seen := make(map[offeringKey]struct{})
	categoryIndex := make(map[string]int)

	for _, r := range rules {
		rule := cloneRule(r)
		res.Warnings = append(res.Warnings, unknownCodes(rule, known)...)

		name := programKey(rule.ProgramName)
		for _, inst := range institutions {
			code := normalizeCode(inst.ShortCode)
			if !rule.Availability.Permits(code) {
				continue
			}
			key := offeringKey{code: code, program: name}
			if _, dup := seen[key]; dup {
				res.Warnings = append(res.Warnings, Warning{
					Kind:            WarningDuplicateOffering,
					ProgramName:     rule.ProgramName,
					InstitutionCode: code,
				})
				continue
			}
			seen[key] = struct{}{}

			offering := Offering{Institution: inst, Rule: rule}
			res.Offerings = append(res.Offerings, offering)

			i, ok := categoryIndex[rule.Category]
			if !ok {
				i = len(res.Categories)
				categoryIndex[rule.Category] = i
				res.Categories = append(res.Categories, CategoryGroup{Category: rule.Category})
			}
			res.Categories[i].Offerings = append(res.Categories[i].Offerings, offering)
		}
	}
	return res
}

type offeringKey struct {
	code    string
	program string
}

func unknownCodes(rule Rule, known map[string]struct{}) []Warning {
	if rule.Availability.Kind != AvailabilityExcludeList && rule.Availability.Kind != AvailabilityIncludeOnly {
		return nil
	}
	var out []Warning
	reported := make(map[string]struct{})
	for _, c := range rule.Availability.Codes {
		code := normalizeCode(c)
		if _, ok := known[code]; ok {
			continue
		}
		if _, dup := reported[code]; dup {
			continue
		}
		reported[code] = struct{}{}
		out = append(out, Warning{
			Kind:            WarningUnknownInstitutionCode,
			ProgramName:     rule.ProgramName,
			InstitutionCode: code,
		})
	}
	return out
}

// cloneRule detaches the rule's slices from the caller's snapshot so the
// published resolution cannot be mutated through them.
func cloneRule(r Rule) Rule {
	r.RequiredSubjects = append([]RequiredSubject(nil), r.RequiredSubjects...)
	r.Availability.Codes = append([]string(nil), r.Availability.Codes...)
	return r
}
