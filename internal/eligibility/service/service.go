package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"unimatch/internal/catalog"
	"unimatch/internal/eligibility"
	"unimatch/internal/eligibility/metrics"
	"unimatch/internal/eligibility/report"
	"unimatch/internal/profile"
	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
	"unimatch/pkg/requestcontext"
)

// DefaultNearMissGap is how many aggregate points short an offering may be
// and still be reported as a near miss.
const DefaultNearMissGap = 3

// Catalog is the read side of the catalog registry.
type Catalog interface {
	Current() (*catalog.Resolved, error)
}

// Request is one evaluation request.
type Request struct {
	Subjects []profile.Entry
	SortBy   report.SortKey
	Filter   report.Filter
}

// Report is the answer to one evaluation request. Summary always covers the
// whole catalog; Groups and Results honour the request filter.
type Report struct {
	ID                       string
	CatalogVersion           string
	AggregateScore           int
	ContributingSubjectCount int
	MinimumSubjects          int
	Subjects                 []profile.Subject
	Summary                  report.Summary
	Groups                   []report.Group
	Results                  []eligibility.Result
	NearMisses               []eligibility.Result
	EvaluatedAt              time.Time
}

// CatalogInfo describes the published catalog snapshot.
type CatalogInfo struct {
	Version      string
	ResolvedAt   time.Time
	Institutions []catalog.Institution
	Programs     int
	Offerings    int
	Categories   []string
	Warnings     []catalog.Warning
}

// Service orchestrates profile construction, matching and aggregation
// against the current catalog snapshot.
type Service struct {
	catalog         Catalog
	logger          *slog.Logger
	metrics         *metrics.Metrics
	tracer          trace.Tracer
	minimumSubjects int
	nearMissGap     int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithMinimumSubjects sets the contributing subject count matching requires.
func WithMinimumSubjects(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.minimumSubjects = n
		}
	}
}

// WithNearMissGap sets the near miss threshold. Zero disables near misses.
func WithNearMissGap(points int) Option {
	return func(s *Service) {
		if points >= 0 {
			s.nearMissGap = points
		}
	}
}

// New constructs a Service.
func New(cat Catalog, opts ...Option) *Service {
	s := &Service{
		catalog:         cat,
		tracer:          otel.Tracer("unimatch/eligibility"),
		minimumSubjects: profile.DefaultMinimumSubjects,
		nearMissGap:     DefaultNearMissGap,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Evaluate builds a profile from req.Subjects and checks it against every
// offering of the current catalog.
func (s *Service) Evaluate(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "eligibility.Evaluate", trace.WithAttributes(
		attribute.Int("eligibility.subjects", len(req.Subjects)),
	))
	defer span.End()

	resolved, err := s.catalog.Current()
	if err != nil {
		s.fail(span, "unavailable", err)
		return nil, err
	}
	span.SetAttributes(attribute.String("catalog.version", resolved.Version))

	p, err := profile.FromEntries(resolved.Taxonomy, req.Subjects, profile.WithMinimumSubjects(s.minimumSubjects))
	if err != nil {
		s.fail(span, "invalid", err)
		return nil, err
	}

	eval, err := eligibility.Evaluate(p, resolved.Offerings())
	if err != nil {
		if errors.Is(err, eligibility.ErrProfileIncomplete) {
			s.metrics.IncrementEvaluation(string(eligibility.StatusProfileIncomplete))
			s.logInfo(ctx, "eligibility blocked by incomplete profile",
				"request_id", requestcontext.RequestID(ctx),
				"catalog_version", resolved.Version,
				"contributing_subjects", eval.ContributingSubjectCount,
				"minimum_subjects", eval.MinimumSubjects,
			)
			return nil, dErrors.Wrap(err, dErrors.CodeProfileIncomplete, fmt.Sprintf(
				"%d of %d contributing subjects entered", eval.ContributingSubjectCount, eval.MinimumSubjects))
		}
		s.fail(span, "invalid", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "evaluate eligibility")
	}

	filtered := req.Filter.Apply(eval.Results)
	rep := &Report{
		ID:                       uuid.NewString(),
		CatalogVersion:           resolved.Version,
		AggregateScore:           eval.AggregateScore,
		ContributingSubjectCount: eval.ContributingSubjectCount,
		MinimumSubjects:          eval.MinimumSubjects,
		Subjects:                 p.Subjects(),
		Summary:                  report.Summarize(eval.Results),
		Groups:                   report.GroupByCategory(filtered, req.SortBy),
		Results:                  filtered,
		NearMisses:               []eligibility.Result{},
		EvaluatedAt:              requestcontext.Now(ctx),
	}
	if s.nearMissGap > 0 {
		scope := req.Filter
		scope.EligibleOnly = false
		if near := report.NearMisses(scope.Apply(eval.Results), s.nearMissGap); near != nil {
			rep.NearMisses = near
		}
	}

	s.metrics.IncrementEvaluation(string(eval.Status))
	s.metrics.ObserveEligible(rep.Summary.EligibleCount)
	s.metrics.ObserveEvaluateLatency(time.Since(start))
	span.SetAttributes(
		attribute.Int("eligibility.aggregate_score", rep.AggregateScore),
		attribute.Int("eligibility.eligible", rep.Summary.EligibleCount),
	)
	s.logInfo(ctx, "eligibility evaluated",
		"request_id", requestcontext.RequestID(ctx),
		"report_id", rep.ID,
		"catalog_version", rep.CatalogVersion,
		"aggregate_score", rep.AggregateScore,
		"offerings", rep.Summary.TotalOfferings,
		"eligible", rep.Summary.EligibleCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rep, nil
}

// Catalog describes the current snapshot.
func (s *Service) Catalog(ctx context.Context) (*CatalogInfo, error) {
	resolved, err := s.catalog.Current()
	if err != nil {
		return nil, err
	}
	res := resolved.Resolution
	info := &CatalogInfo{
		Version:      resolved.Version,
		ResolvedAt:   resolved.ResolvedAt,
		Institutions: resolved.Institutions,
		Programs:     resolved.Programs,
		Offerings:    len(res.Offerings),
		Categories:   make([]string, 0, len(res.Categories)),
		Warnings:     res.Warnings,
	}
	for _, c := range res.Categories {
		info.Categories = append(info.Categories, c.Category)
	}
	return info, nil
}

// Offerings lists resolved offerings matching filter, one page at a time.
// EligibleOnly is ignored since no profile is involved.
func (s *Service) Offerings(ctx context.Context, filter report.Filter, page, size int) (report.Page[catalog.Offering], error) {
	resolved, err := s.catalog.Current()
	if err != nil {
		return report.Page[catalog.Offering]{}, err
	}
	var matched []catalog.Offering
	for _, o := range resolved.Offerings() {
		if filter.MatchesOffering(o) {
			matched = append(matched, o)
		}
	}
	return report.Paginate(matched, page, size)
}

// Subjects returns the subject taxonomy of the current snapshot.
func (s *Service) Subjects(ctx context.Context) ([]subject.Definition, error) {
	resolved, err := s.catalog.Current()
	if err != nil {
		return nil, err
	}
	return resolved.Taxonomy.Definitions(), nil
}

func (s *Service) fail(span trace.Span, status string, err error) {
	s.metrics.IncrementEvaluation(status)
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
