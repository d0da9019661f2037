// Package subject holds the subject reference data: canonical names, alias
// normalization, the non-contributing flags, and the mark-to-level table.
package subject

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	dErrors "unimatch/pkg/domain-errors"
	pstrings "unimatch/pkg/platform/strings"
)

// Definition is one taxonomy entry as authored.
type Definition struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	// NonContributing subjects never count toward the aggregate score.
	NonContributing bool `json:"non_contributing" yaml:"non_contributing"`
	// Mandatory subjects cannot be removed from a candidate profile.
	Mandatory bool `json:"mandatory" yaml:"mandatory"`
}

// Taxonomy resolves free-form subject names to canonical ones.
// It is immutable after construction and safe for concurrent use.
type Taxonomy struct {
	canonical map[string]string
	defs      map[string]Definition
	order     []string
}

// NewTaxonomy builds the normalization table once. Every name and alias is
// keyed by its folded form; an alias claimed by two subjects is rejected.
func NewTaxonomy(defs []Definition) (*Taxonomy, error) {
	t := &Taxonomy{
		canonical: make(map[string]string, len(defs)*3),
		defs:      make(map[string]Definition, len(defs)),
		order:     make([]string, 0, len(defs)),
	}
	for i, def := range defs {
		name := pstrings.Collapse(def.Name)
		if name == "" {
			return nil, dErrors.New(dErrors.CodeInvalidTaxonomy, fmt.Sprintf("subject %d has no name", i))
		}
		def.Name = name
		def.Aliases = pstrings.DedupeAndTrim(def.Aliases)
		for _, raw := range append([]string{name}, def.Aliases...) {
			key := pstrings.FoldKey(raw)
			if owner, ok := t.canonical[key]; ok && owner != name {
				return nil, dErrors.New(dErrors.CodeInvalidTaxonomy,
					fmt.Sprintf("name %q is claimed by both %q and %q", raw, owner, name))
			}
			t.canonical[key] = name
		}
		if _, dup := t.defs[name]; dup {
			return nil, dErrors.New(dErrors.CodeInvalidTaxonomy, fmt.Sprintf("subject %q defined twice", name))
		}
		t.defs[name] = def
		t.order = append(t.order, name)
	}
	return t, nil
}

// Normalize returns the canonical name for a subject. Unknown subjects are
// custom entries and come back title-cased so that "visual arts" and
// "Visual  Arts" collide.
func (t *Taxonomy) Normalize(name string) string {
	key := pstrings.FoldKey(name)
	if key == "" {
		return ""
	}
	if t != nil {
		if canonical, ok := t.canonical[key]; ok {
			return canonical
		}
	}
	// Casers carry state, so one is built per call.
	return cases.Title(language.English).String(key)
}

// Lookup returns the definition of a known subject.
func (t *Taxonomy) Lookup(name string) (Definition, bool) {
	if t == nil {
		return Definition{}, false
	}
	def, ok := t.defs[t.Normalize(name)]
	return def, ok
}

// Known reports whether name resolves to a taxonomy entry.
func (t *Taxonomy) Known(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}

// Contributes reports whether a subject counts toward the aggregate score.
// Unknown subjects contribute.
func (t *Taxonomy) Contributes(name string) bool {
	def, ok := t.Lookup(name)
	return !ok || !def.NonContributing
}

// IsMandatory reports whether a subject is structurally required.
func (t *Taxonomy) IsMandatory(name string) bool {
	def, ok := t.Lookup(name)
	return ok && def.Mandatory
}

// Definitions returns the entries in authored order.
func (t *Taxonomy) Definitions() []Definition {
	if t == nil {
		return nil
	}
	out := make([]Definition, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, t.defs[name])
	}
	return out
}
