package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "unimatch/pkg/domain-errors"
)

func validSnapshot() Snapshot {
	return Snapshot{
		Version:      "2026.1",
		Institutions: testInstitutions(),
		Rules: []Rule{
			{
				ProgramName: "BSc Computer Science", Category: "Science", DurationLabel: "3 years",
				MinimumAggregateScore: 28, Availability: ExcludeList("UWC"),
				RequiredSubjects: []RequiredSubject{{Name: "Mathematics", MinimumLevel: 5, Mandatory: true}},
			},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("accepts a well formed snapshot", func(t *testing.T) {
		assert.NoError(t, Validate(validSnapshot()))
	})

	t.Run("accepts unknown codes in availability", func(t *testing.T) {
		snap := validSnapshot()
		snap.Rules[0].Availability = ExcludeList("NOPE")
		assert.NoError(t, Validate(snap))
	})

	tests := []struct {
		name   string
		mutate func(s *Snapshot)
		want   string
	}{
		{"missing version", func(s *Snapshot) { s.Version = " " }, "version is required"},
		{"empty program name", func(s *Snapshot) { s.Rules[0].ProgramName = "" }, "program name is required"},
		{"empty category", func(s *Snapshot) { s.Rules[0].Category = "" }, "category is required"},
		{"negative minimum", func(s *Snapshot) { s.Rules[0].MinimumAggregateScore = -1 }, "is negative"},
		{"level out of range", func(s *Snapshot) { s.Rules[0].RequiredSubjects[0].MinimumLevel = 8 }, "outside 1..7"},
		{"blank required subject", func(s *Snapshot) { s.Rules[0].RequiredSubjects[0].Name = "" }, "has no name"},
		{"unknown availability kind", func(s *Snapshot) { s.Rules[0].Availability.Kind = "sometimes" }, "unknown availability kind"},
		{"empty include list", func(s *Snapshot) { s.Rules[0].Availability = IncludeOnly() }, "lists no institution codes"},
		{"duplicate short code", func(s *Snapshot) { s.Institutions[1].ShortCode = "uct" }, "already used"},
		{"missing short code", func(s *Snapshot) { s.Institutions[0].ShortCode = "" }, "short code is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := validSnapshot()
			tt.mutate(&snap)
			err := Validate(snap)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeMalformedCatalog))
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	t.Run("reports every problem", func(t *testing.T) {
		snap := validSnapshot()
		snap.Rules = append(snap.Rules, Rule{ProgramName: "", Category: "", MinimumAggregateScore: -3})
		err := Validate(snap)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "program name is required")
		assert.Contains(t, err.Error(), "category is required")
		assert.Contains(t, err.Error(), "is negative")
	})
}
