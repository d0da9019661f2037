// Package profile models a candidate's entered subject results.
package profile

import (
	"fmt"

	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
)

// DefaultMinimumSubjects is the number of contributing subjects with marks
// required before matching is meaningful.
const DefaultMinimumSubjects = 6

// ErrCannotRemoveMandatorySubject is returned when removal targets a
// structurally required subject. The profile is left unchanged.
var ErrCannotRemoveMandatorySubject = dErrors.New(dErrors.CodeCannotRemoveMandatory, "subject is mandatory and cannot be removed")

// Subject is one entered result. Level is always derived from Mark.
type Subject struct {
	Name               string        `json:"name"`
	Mark               int           `json:"mark"`
	Level              subject.Level `json:"level"`
	ContributesToScore bool          `json:"contributes_to_score"`
}

// Outcome reports what AddOrUpdateSubject did.
type Outcome int

const (
	OutcomeAdded Outcome = iota
	// OutcomeUpdated means an entry with the same normalized name existed and
	// was overwritten. It is informational, not an error.
	OutcomeUpdated
)

func (o Outcome) String() string {
	if o == OutcomeUpdated {
		return "updated"
	}
	return "added"
}

// Profile is an ordered set of unique subjects. It is not safe for
// concurrent mutation; each request builds its own.
type Profile struct {
	taxonomy        *subject.Taxonomy
	minimumSubjects int
	subjects        []Subject
	index           map[string]int
}

type Option func(p *Profile)

// WithMinimumSubjects overrides DefaultMinimumSubjects. Values below one are ignored.
func WithMinimumSubjects(n int) Option {
	return func(p *Profile) {
		if n > 0 {
			p.minimumSubjects = n
		}
	}
}

// New returns an empty profile resolving names through taxonomy.
func New(taxonomy *subject.Taxonomy, opts ...Option) *Profile {
	p := &Profile{
		taxonomy:        taxonomy,
		minimumSubjects: DefaultMinimumSubjects,
		index:           make(map[string]int),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Entry is a raw (name, mark) pair as supplied by a caller.
type Entry struct {
	Name string `json:"name"`
	Mark int    `json:"mark"`
}

// FromEntries builds a profile from raw entries, failing on the first
// invalid one. Later entries for the same subject overwrite earlier ones.
func FromEntries(taxonomy *subject.Taxonomy, entries []Entry, opts ...Option) (*Profile, error) {
	p := New(taxonomy, opts...)
	for i, e := range entries {
		if _, err := p.AddOrUpdateSubject(e.Name, e.Mark); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("subject %d", i))
		}
	}
	return p, nil
}

// AddOrUpdateSubject normalizes name, derives the level from mark and
// inserts or overwrites the entry for that subject.
func (p *Profile) AddOrUpdateSubject(name string, mark int) (Outcome, error) {
	normalized := p.taxonomy.Normalize(name)
	if normalized == "" {
		return OutcomeAdded, dErrors.New(dErrors.CodeValidation, "subject name is required")
	}
	if !subject.ValidMark(mark) {
		return OutcomeAdded, dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("mark for %s must be between %d and %d, got %d", normalized, subject.MinMark, subject.MaxMark, mark))
	}

	s := Subject{
		Name:               normalized,
		Mark:               mark,
		Level:              subject.LevelOf(mark),
		ContributesToScore: p.taxonomy.Contributes(normalized),
	}
	if i, ok := p.index[normalized]; ok {
		p.subjects[i] = s
		return OutcomeUpdated, nil
	}
	p.index[normalized] = len(p.subjects)
	p.subjects = append(p.subjects, s)
	return OutcomeAdded, nil
}

// RemoveSubject deletes a subject. Absent subjects are a no-op; mandatory
// subjects return ErrCannotRemoveMandatorySubject.
func (p *Profile) RemoveSubject(name string) error {
	normalized := p.taxonomy.Normalize(name)
	if p.taxonomy.IsMandatory(normalized) {
		return ErrCannotRemoveMandatorySubject
	}
	i, ok := p.index[normalized]
	if !ok {
		return nil
	}
	p.subjects = append(p.subjects[:i], p.subjects[i+1:]...)
	delete(p.index, normalized)
	for j := i; j < len(p.subjects); j++ {
		p.index[p.subjects[j].Name] = j
	}
	return nil
}

// Subject returns the entry for name after normalization.
func (p *Profile) Subject(name string) (Subject, bool) {
	i, ok := p.index[p.taxonomy.Normalize(name)]
	if !ok {
		return Subject{}, false
	}
	return p.subjects[i], true
}

// CanonicalSubject looks up an entry by a name that is already canonical,
// such as a requirement name from a resolved catalog.
func (p *Profile) CanonicalSubject(name string) (Subject, bool) {
	i, ok := p.index[name]
	if !ok {
		return Subject{}, false
	}
	return p.subjects[i], true
}

// Subjects returns a copy of the entries in insertion order.
func (p *Profile) Subjects() []Subject {
	out := make([]Subject, len(p.subjects))
	copy(out, p.subjects)
	return out
}

// Taxonomy returns the taxonomy the profile normalizes against.
func (p *Profile) Taxonomy() *subject.Taxonomy {
	return p.taxonomy
}

// ContributingSubjectCount counts contributing subjects with a mark above zero.
func (p *Profile) ContributingSubjectCount() int {
	n := 0
	for _, s := range p.subjects {
		if counts(s) {
			n++
		}
	}
	return n
}

// AggregateScore sums the levels of contributing subjects with a mark above
// zero. It is recomputed on every call.
func (p *Profile) AggregateScore() int {
	total := 0
	for _, s := range p.subjects {
		if counts(s) {
			total += int(s.Level)
		}
	}
	return total
}

// MinimumSubjects is the contributing-subject threshold for matching.
func (p *Profile) MinimumSubjects() int {
	return p.minimumSubjects
}

// IsReadyForMatching reports whether enough contributing subjects are entered.
func (p *Profile) IsReadyForMatching() bool {
	return p.ContributingSubjectCount() >= p.minimumSubjects
}

func counts(s Subject) bool {
	return s.ContributesToScore && s.Mark > 0
}
