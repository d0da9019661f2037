package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"unimatch/internal/catalog"
	"unimatch/internal/eligibility/metrics"
	"unimatch/internal/eligibility/report"
	"unimatch/internal/profile"
	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
	"unimatch/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	registry *catalog.Registry
	metrics  *metrics.Metrics
	service  *Service
	ctx      context.Context
	now      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.now = time.Date(2026, 2, 1, 8, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.registry = catalog.NewRegistry()
	_, err := s.registry.Load(s.ctx, catalog.Snapshot{
		Version: "2026.1",
		Institutions: []catalog.Institution{
			{ID: "1", DisplayName: "University of Cape Town", ShortCode: "UCT"},
			{ID: "2", DisplayName: "University of the Western Cape", ShortCode: "UWC"},
			{ID: "3", DisplayName: "University of the Witwatersrand", ShortCode: "WITS"},
		},
		Rules: []catalog.Rule{
			{
				ProgramName: "BSc", Category: "Science", MinimumAggregateScore: 32,
				RequiredSubjects: []catalog.RequiredSubject{{Name: "Mathematics", MinimumLevel: 5, Mandatory: true}},
				Availability:     catalog.ExcludeList("UWC"),
			},
			{ProgramName: "BA", Category: "Humanities", MinimumAggregateScore: 26, Availability: catalog.Universal()},
			{ProgramName: "BCom", Category: "Commerce", MinimumAggregateScore: 42, Availability: catalog.IncludeOnly("UCT")},
		},
	})
	s.Require().NoError(err)
	s.metrics = metrics.NewWith(prometheus.NewRegistry())
	s.service = New(s.registry, WithMetrics(s.metrics))
}

func entries(n, mark int) []profile.Entry {
	names := []string{"Maths", "Physical Sciences", "English HL", "Accounting", "Geography", "Life Sciences"}
	out := []profile.Entry{{Name: "LO", Mark: 80}}
	for _, name := range names[:n] {
		out = append(out, profile.Entry{Name: name, Mark: mark})
	}
	return out
}

func (s *ServiceSuite) TestEvaluate() {
	s.Run("builds a full report", func() {
		rep, err := s.service.Evaluate(s.ctx, Request{Subjects: entries(6, 60)})
		s.Require().NoError(err)

		s.NotEmpty(rep.ID)
		s.Equal("2026.1", rep.CatalogVersion)
		s.Equal(30, rep.AggregateScore)
		s.Equal(6, rep.ContributingSubjectCount)
		s.Equal(s.now, rep.EvaluatedAt)
		s.Len(rep.Subjects, 7)

		s.Equal(6, rep.Summary.TotalOfferings)
		s.Equal(3, rep.Summary.EligibleCount)
		s.Equal(3, rep.Summary.DistinctInstitutionsAmongEligible)
		s.Len(rep.Results, 6)
		s.Require().Len(rep.Groups, 3)
		s.Equal("Science", rep.Groups[0].Category)

		s.Require().Len(rep.NearMisses, 2)
		for _, r := range rep.NearMisses {
			s.Equal("BSc", r.Offering.Rule.ProgramName)
			s.Equal(2, r.ScoreGap)
		}
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Evaluations.WithLabelValues("evaluated")))
	})

	s.Run("filter narrows groups but not the summary", func() {
		rep, err := s.service.Evaluate(s.ctx, Request{
			Subjects: entries(6, 60),
			Filter:   report.Filter{Category: "science"},
		})
		s.Require().NoError(err)
		s.Len(rep.Results, 2)
		s.Len(rep.Groups, 1)
		s.Equal(6, rep.Summary.TotalOfferings)
	})

	s.Run("eligible only still reports near misses", func() {
		rep, err := s.service.Evaluate(s.ctx, Request{
			Subjects: entries(6, 60),
			Filter:   report.Filter{EligibleOnly: true},
		})
		s.Require().NoError(err)
		s.Len(rep.Results, 3)
		s.Len(rep.NearMisses, 2)
	})

	s.Run("incomplete profile returns no report", func() {
		rep, err := s.service.Evaluate(s.ctx, Request{Subjects: entries(5, 95)})
		s.Require().Error(err)
		s.Nil(rep)
		s.True(dErrors.HasCode(err, dErrors.CodeProfileIncomplete))
		s.Contains(err.Error(), "5 of 6")
		s.Equal(1.0, testutil.ToFloat64(s.metrics.Evaluations.WithLabelValues("profile_incomplete")))
	})

	s.Run("invalid mark is a validation error", func() {
		in := entries(6, 60)
		in[2].Mark = 101
		_, err := s.service.Evaluate(s.ctx, Request{Subjects: in})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestMinimumSubjectsOption() {
	svc := New(s.registry, WithMinimumSubjects(4), WithNearMissGap(0))
	rep, err := svc.Evaluate(s.ctx, Request{Subjects: entries(4, 60)})
	s.Require().NoError(err)
	s.Equal(4, rep.MinimumSubjects)
	s.Equal(20, rep.AggregateScore)
	s.Empty(rep.NearMisses)
}

func (s *ServiceSuite) TestUnresolvedCatalog() {
	svc := New(catalog.NewRegistry())

	_, err := svc.Evaluate(s.ctx, Request{Subjects: entries(6, 60)})
	s.ErrorIs(err, catalog.ErrCatalogUnresolved)

	_, err = svc.Catalog(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeCatalogUnresolved))

	_, err = svc.Offerings(s.ctx, report.Filter{}, 1, 10)
	s.True(dErrors.HasCode(err, dErrors.CodeCatalogUnresolved))
}

func (s *ServiceSuite) TestCatalog() {
	info, err := s.service.Catalog(s.ctx)
	s.Require().NoError(err)
	s.Equal("2026.1", info.Version)
	s.Equal(3, info.Programs)
	s.Equal(6, info.Offerings)
	s.Equal([]string{"Science", "Humanities", "Commerce"}, info.Categories)
	s.Empty(info.Warnings)
}

func (s *ServiceSuite) TestOfferings() {
	page, err := s.service.Offerings(s.ctx, report.Filter{InstitutionCode: "uwc"}, 1, 10)
	s.Require().NoError(err)
	s.Require().Len(page.Items, 1)
	s.Equal("BA", page.Items[0].Rule.ProgramName)

	page, err = s.service.Offerings(s.ctx, report.Filter{}, 2, 4)
	s.Require().NoError(err)
	s.Equal(6, page.Total)
	s.Len(page.Items, 2)

	_, err = s.service.Offerings(s.ctx, report.Filter{}, 0, 4)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestSubjects() {
	defs, err := s.service.Subjects(s.ctx)
	s.Require().NoError(err)
	s.Equal(len(subject.DefaultDefinitions()), len(defs))
}
