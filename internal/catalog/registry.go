package catalog

//go:generate mockgen -source=registry.go -destination=mocks/mocks.go -package=mocks Source,VersionedSource,EventPublisher

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"unimatch/internal/catalog/metrics"
	"unimatch/internal/subject"
	dErrors "unimatch/pkg/domain-errors"
)

// ErrCatalogUnresolved is returned by Current before any snapshot is loaded.
var ErrCatalogUnresolved = dErrors.New(dErrors.CodeCatalogUnresolved, "no catalog snapshot is loaded")

// Source supplies complete catalog snapshots.
type Source interface {
	Fetch(ctx context.Context) (Snapshot, error)
}

// VersionedSource can also fetch one specific published version. Fetching a
// version it does not hold returns an error wrapping sentinel.ErrNotFound.
type VersionedSource interface {
	Source
	FetchVersion(ctx context.Context, version string) (Snapshot, error)
}

// EventPublisher receives a notification each time a snapshot is published.
type EventPublisher interface {
	PublishResolved(ctx context.Context, event ResolvedEvent) error
}

// ResolvedEvent describes a newly published snapshot.
type ResolvedEvent struct {
	ID           string    `json:"id"`
	Version      string    `json:"version"`
	Institutions int       `json:"institutions"`
	Programs     int       `json:"programs"`
	Offerings    int       `json:"offerings"`
	Categories   int       `json:"categories"`
	Warnings     []Warning `json:"warnings,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// Resolved is a published, immutable catalog snapshot. Nothing reachable
// from it may be modified; a new catalog version produces a new Resolved.
type Resolved struct {
	Version      string
	Taxonomy     *subject.Taxonomy
	Institutions []Institution
	Programs     int
	Resolution   Resolution
	ResolvedAt   time.Time
}

// Offerings returns the resolved offerings. Callers must not modify them.
func (r *Resolved) Offerings() []Offering {
	return r.Resolution.Offerings
}

// State is the registry lifecycle: Unresolved until the first successful
// load, then Resolved at some version.
type State string

const (
	StateUnresolved State = "unresolved"
	StateResolved   State = "resolved"
)

// Registry caches the resolved offerings of the current catalog snapshot.
// Loads build a complete new Resolved and swap it in atomically, so
// concurrent readers always see either the old or the new snapshot whole.
type Registry struct {
	current atomic.Pointer[Resolved]
	reloads singleflight.Group

	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher EventPublisher
	tracer    trace.Tracer
	taxonomy  *subject.Taxonomy
	now       func() time.Time
}

type Option func(r *Registry)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

func WithEventPublisher(p EventPublisher) Option {
	return func(r *Registry) {
		r.publisher = p
	}
}

// WithDefaultTaxonomy sets the taxonomy used for snapshots that ship none.
func WithDefaultTaxonomy(t *subject.Taxonomy) Option {
	return func(r *Registry) {
		r.taxonomy = t
	}
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry returns an Unresolved registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		tracer: otel.Tracer("unimatch/catalog"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.taxonomy == nil {
		r.taxonomy = subject.DefaultTaxonomy()
	}
	return r
}

// State reports the lifecycle state and the current version, if any.
func (r *Registry) State() (State, string) {
	cur := r.current.Load()
	if cur == nil {
		return StateUnresolved, ""
	}
	return StateResolved, cur.Version
}

// Current returns the published snapshot or ErrCatalogUnresolved.
func (r *Registry) Current() (*Resolved, error) {
	cur := r.current.Load()
	if cur == nil {
		return nil, ErrCatalogUnresolved
	}
	return cur, nil
}

// Load validates and resolves snap and publishes it. Loading the version
// that is already current is a no-op. A rejected snapshot leaves the
// previous one in place.
func (r *Registry) Load(ctx context.Context, snap Snapshot) (*Resolved, error) {
	ctx, span := r.tracer.Start(ctx, "catalog.Load", trace.WithAttributes(
		attribute.String("catalog.version", snap.Version),
	))
	defer span.End()

	if cur := r.current.Load(); cur != nil && cur.Version == snap.Version {
		r.metrics.IncrementLoad("unchanged")
		return cur, nil
	}

	start := r.now()
	resolved, err := r.build(snap)
	if err != nil {
		r.metrics.IncrementLoad("rejected")
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot rejected")
		r.logError(ctx, "catalog snapshot rejected", "catalog_version", snap.Version, "error", err)
		return nil, err
	}
	r.metrics.ObserveResolve(start)

	r.current.Store(resolved)

	res := resolved.Resolution
	r.metrics.IncrementLoad("resolved")
	r.metrics.SetOfferings(len(res.Offerings))
	r.metrics.AddWarnings(string(WarningUnknownInstitutionCode), res.UnknownCodeCount())
	r.metrics.AddWarnings(string(WarningDuplicateOffering), res.DuplicateCount())
	span.SetAttributes(attribute.Int("catalog.offerings", len(res.Offerings)))

	for _, w := range res.Warnings {
		if w.Kind == WarningUnknownInstitutionCode {
			r.logWarn(ctx, "rule references unknown institution code",
				"catalog_version", resolved.Version,
				"program", w.ProgramName,
				"institution_code", w.InstitutionCode,
			)
		}
	}
	r.logInfo(ctx, "catalog snapshot resolved",
		"catalog_version", resolved.Version,
		"institutions", len(resolved.Institutions),
		"programs", resolved.Programs,
		"offerings", len(res.Offerings),
		"categories", len(res.Categories),
		"duplicates_dropped", res.DuplicateCount(),
		"unknown_codes", res.UnknownCodeCount(),
		"duration_ms", r.now().Sub(start).Milliseconds(),
	)
	r.publish(ctx, resolved)

	return resolved, nil
}

// Reload fetches a snapshot from src and loads it. Concurrent reloads share
// one fetch.
func (r *Registry) Reload(ctx context.Context, src Source) (*Resolved, error) {
	v, err, _ := r.reloads.Do("reload", func() (any, error) {
		snap, err := src.Fetch(ctx)
		if err != nil {
			r.metrics.IncrementLoad("fetch_failed")
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "fetch catalog snapshot")
		}
		return r.Load(ctx, snap)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolved), nil
}

// ReloadVersion fetches exactly version from src and loads it, whether it is
// newer or older than the current one. It does not share a fetch with
// Reload, so it never returns whatever the latest snapshot happened to be.
func (r *Registry) ReloadVersion(ctx context.Context, src VersionedSource, version string) (*Resolved, error) {
	if cur := r.current.Load(); cur != nil && cur.Version == version {
		return cur, nil
	}
	v, err, _ := r.reloads.Do("version:"+version, func() (any, error) {
		snap, err := src.FetchVersion(ctx, version)
		if err != nil {
			r.metrics.IncrementLoad("fetch_failed")
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "fetch catalog version "+version)
		}
		return r.Load(ctx, snap)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Resolved), nil
}

func (r *Registry) build(snap Snapshot) (*Resolved, error) {
	if err := Validate(snap); err != nil {
		return nil, err
	}
	taxonomy := r.taxonomy
	if len(snap.Subjects) > 0 {
		t, err := subject.NewTaxonomy(snap.Subjects)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeMalformedCatalog, "catalog snapshot rejected")
		}
		taxonomy = t
	}
	return &Resolved{
		Version:      snap.Version,
		Taxonomy:     taxonomy,
		Institutions: append([]Institution(nil), snap.Institutions...),
		Programs:     len(snap.Rules),
		Resolution:   Resolve(canonicalRules(snap.Rules, taxonomy), snap.Institutions),
		ResolvedAt:   r.now(),
	}, nil
}

// canonicalRules copies rules with requirement names resolved through the
// taxonomy, so matching compares stored canonical names only.
func canonicalRules(rules []Rule, taxonomy *subject.Taxonomy) []Rule {
	out := make([]Rule, len(rules))
	for i, rule := range rules {
		if len(rule.RequiredSubjects) > 0 {
			reqs := make([]RequiredSubject, len(rule.RequiredSubjects))
			for j, req := range rule.RequiredSubjects {
				req.Name = taxonomy.Normalize(req.Name)
				reqs[j] = req
			}
			rule.RequiredSubjects = reqs
		}
		out[i] = rule
	}
	return out
}

func (r *Registry) publish(ctx context.Context, resolved *Resolved) {
	if r.publisher == nil {
		return
	}
	res := resolved.Resolution
	event := ResolvedEvent{
		ID:           uuid.NewString(),
		Version:      resolved.Version,
		Institutions: len(resolved.Institutions),
		Programs:     resolved.Programs,
		Offerings:    len(res.Offerings),
		Categories:   len(res.Categories),
		Warnings:     res.Warnings,
		ResolvedAt:   resolved.ResolvedAt,
	}
	if err := r.publisher.PublishResolved(ctx, event); err != nil {
		r.logWarn(ctx, "catalog event publish failed", "catalog_version", resolved.Version, "error", err)
	}
}

func (r *Registry) logInfo(ctx context.Context, msg string, args ...any) {
	if r.logger != nil {
		r.logger.InfoContext(ctx, msg, args...)
	}
}

func (r *Registry) logWarn(ctx context.Context, msg string, args ...any) {
	if r.logger != nil {
		r.logger.WarnContext(ctx, msg, args...)
	}
}

func (r *Registry) logError(ctx context.Context, msg string, args ...any) {
	if r.logger != nil {
		r.logger.ErrorContext(ctx, msg, args...)
	}
}
