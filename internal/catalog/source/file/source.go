// Package file loads catalog snapshots from a YAML document on disk.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"unimatch/internal/catalog"
	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
	"unimatch/pkg/platform/sentinel"
)

// document mirrors the YAML layout. Requirements are mandatory unless they
// say otherwise.
type document struct {
	Version      string                `yaml:"version"`
	Institutions []catalog.Institution `yaml:"institutions"`
	Programs     []program             `yaml:"programs"`
	Subjects     []subject.Definition  `yaml:"subjects"`
}

type program struct {
	ProgramName           string        `yaml:"program_name"`
	Category              string        `yaml:"category"`
	DurationLabel         string        `yaml:"duration_label"`
	MinimumAggregateScore int           `yaml:"minimum_aggregate_score"`
	RequiredSubjects      []requirement `yaml:"required_subjects"`
	Availability          *availability `yaml:"availability"`
}

type requirement struct {
	Name         string `yaml:"name"`
	MinimumLevel int    `yaml:"minimum_level"`
	Mandatory    *bool  `yaml:"mandatory"`
}

type availability struct {
	Kind  string   `yaml:"kind"`
	Codes []string `yaml:"codes"`
}

// Source reads a catalog file on every Fetch so edits are picked up on reload.
type Source struct {
	path     string
	readFile func(string) ([]byte, error)
}

// New returns a Source for the YAML file at path.
func New(path string) *Source {
	return &Source{path: path, readFile: os.ReadFile}
}

// Fetch reads and parses the file.
func (s *Source) Fetch(ctx context.Context) (catalog.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return catalog.Snapshot{}, err
	}
	data, err := s.readFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return catalog.Snapshot{}, fmt.Errorf("catalog file %s: %w", s.path, sentinel.ErrNotFound)
		}
		return catalog.Snapshot{}, fmt.Errorf("read catalog file %s: %w", s.path, err)
	}
	return Parse(data)
}

// Parse validates the document shape and converts it to a snapshot.
// Semantic checks (duplicate codes, empty include lists) are left to
// catalog.Validate.
func Parse(data []byte) (catalog.Snapshot, error) {
	if problems := validateShape(data); len(problems) > 0 {
		return catalog.Snapshot{}, dErrors.Wrap(
			errors.New(strings.Join(problems, "; ")),
			dErrors.CodeMalformedCatalog,
			"catalog document does not match schema",
		)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return catalog.Snapshot{}, dErrors.Wrap(err, dErrors.CodeMalformedCatalog, "decode catalog document")
	}
	return doc.snapshot(), nil
}

func (d document) snapshot() catalog.Snapshot {
	snap := catalog.Snapshot{
		Version:      d.Version,
		Institutions: d.Institutions,
		Rules:        make([]catalog.Rule, 0, len(d.Programs)),
		Subjects:     d.Subjects,
	}
	for _, p := range d.Programs {
		rule := catalog.Rule{
			ProgramName:           p.ProgramName,
			Category:              p.Category,
			DurationLabel:         p.DurationLabel,
			MinimumAggregateScore: p.MinimumAggregateScore,
			Availability:          p.Availability.toDomain(),
		}
		for _, r := range p.RequiredSubjects {
			rule.RequiredSubjects = append(rule.RequiredSubjects, catalog.RequiredSubject{
				Name:         r.Name,
				MinimumLevel: subject.Level(r.MinimumLevel),
				Mandatory:    r.Mandatory == nil || *r.Mandatory,
			})
		}
		snap.Rules = append(snap.Rules, rule)
	}
	return snap
}

func (a *availability) toDomain() catalog.Availability {
	if a == nil {
		return catalog.Universal()
	}
	switch catalog.AvailabilityKind(a.Kind) {
	case catalog.AvailabilityExcludeList:
		return catalog.ExcludeList(a.Codes...)
	case catalog.AvailabilityIncludeOnly:
		return catalog.IncludeOnly(a.Codes...)
	default:
		return catalog.Universal()
	}
}
