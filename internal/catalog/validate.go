package catalog

import (
	"errors"
	"fmt"
	"strings"

	dErrors "unimatch/pkg/domain-errors"
)

// Validate checks a snapshot before anything is resolved from it. Every
// problem found is reported; a non-nil result means the whole snapshot is
// rejected.
func Validate(snap Snapshot) error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(snap.Version) == "" {
		add("snapshot version is required")
	}

	codes := make(map[string]string, len(snap.Institutions))
	for i, inst := range snap.Institutions {
		code := normalizeCode(inst.ShortCode)
		if code == "" {
			add("institution %d (%q): short code is required", i, inst.DisplayName)
			continue
		}
		if prev, dup := codes[code]; dup {
			add("institution %d (%q): short code %s already used by %q", i, inst.DisplayName, code, prev)
			continue
		}
		codes[code] = inst.DisplayName
	}

	for i, rule := range snap.Rules {
		if err := validateRule(rule); err != nil {
			add("program %d (%q): %w", i, rule.ProgramName, err)
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return dErrors.Wrap(errors.Join(problems...), dErrors.CodeMalformedCatalog, "catalog snapshot rejected")
}

func validateRule(rule Rule) error {
	var problems []error
	if strings.TrimSpace(rule.ProgramName) == "" {
		problems = append(problems, errors.New("program name is required"))
	}
	if strings.TrimSpace(rule.Category) == "" {
		problems = append(problems, errors.New("category is required"))
	}
	if rule.MinimumAggregateScore < 0 {
		problems = append(problems, fmt.Errorf("minimum aggregate score %d is negative", rule.MinimumAggregateScore))
	}
	for j, req := range rule.RequiredSubjects {
		if strings.TrimSpace(req.Name) == "" {
			problems = append(problems, fmt.Errorf("required subject %d has no name", j))
		}
		if !req.MinimumLevel.Valid() {
			problems = append(problems, fmt.Errorf("required subject %q: minimum level %d is outside 1..7", req.Name, req.MinimumLevel))
		}
	}
	switch rule.Availability.Kind {
	case "", AvailabilityUniversal, AvailabilityExcludeList:
	case AvailabilityIncludeOnly:
		// an empty include list would silently offer the program nowhere
		if len(rule.Availability.Codes) == 0 {
			problems = append(problems, errors.New("include_only availability lists no institution codes"))
		}
	default:
		problems = append(problems, fmt.Errorf("unknown availability kind %q", rule.Availability.Kind))
	}
	return errors.Join(problems...)
}
