// Package postgres stores versioned catalog snapshots in Postgres and loads
// them back as a whole.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"unimatch/internal/catalog"
	"unimatch/internal/subject"
	"unimatch/pkg/platform/sentinel"
)

//go:embed schema.sql
var schemaSQL string

const defaultTimeout = 10 * time.Second

// Source reads the latest published snapshot, or a pinned version.
type Source struct {
	pool    *pgxpool.Pool
	version string
	timeout time.Duration
}

type Option func(s *Source)

// WithVersion pins Fetch to one version instead of the latest.
func WithVersion(version string) Option {
	return func(s *Source) {
		s.version = version
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Source over pool.
func New(pool *pgxpool.Pool, opts ...Option) *Source {
	s := &Source{pool: pool, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the catalog tables if they do not exist.
func (s *Source) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure catalog schema: %w", err)
	}
	return nil
}

type institutionRow struct {
	ID          string `db:"id"`
	DisplayName string `db:"display_name"`
	ShortCode   string `db:"short_code"`
}

type programRow struct {
	Position              int      `db:"position"`
	ProgramName           string   `db:"program_name"`
	Category              string   `db:"category"`
	DurationLabel         string   `db:"duration_label"`
	MinimumAggregateScore int      `db:"minimum_aggregate_score"`
	AvailabilityKind      string   `db:"availability_kind"`
	AvailabilityCodes     []string `db:"availability_codes"`
}

type requirementRow struct {
	ProgramPosition int    `db:"program_position"`
	SubjectName     string `db:"subject_name"`
	MinimumLevel    int    `db:"minimum_level"`
	Mandatory       bool   `db:"mandatory"`
}

type subjectRow struct {
	Name            string   `db:"name"`
	Aliases         []string `db:"aliases"`
	NonContributing bool     `db:"non_contributing"`
	Mandatory       bool     `db:"mandatory"`
}

var _ catalog.VersionedSource = (*Source)(nil)

// Fetch loads the pinned version, or the latest published one when none is
// pinned.
func (s *Source) Fetch(ctx context.Context) (catalog.Snapshot, error) {
	return s.fetch(ctx, s.version)
}

// FetchVersion loads exactly version regardless of any pin.
func (s *Source) FetchVersion(ctx context.Context, version string) (catalog.Snapshot, error) {
	if version == "" {
		return catalog.Snapshot{}, fmt.Errorf("catalog version is required: %w", sentinel.ErrNotFound)
	}
	return s.fetch(ctx, version)
}

// fetch reads one complete snapshot. The four tables are read concurrently.
func (s *Source) fetch(ctx context.Context, pinned string) (catalog.Snapshot, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	version, err := s.resolveVersion(ctx, pinned)
	if err != nil {
		return catalog.Snapshot{}, err
	}

	var (
		institutions []institutionRow
		programs     []programRow
		requirements []requirementRow
		subjects     []subjectRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		institutions, err = collect[institutionRow](gctx, s.pool,
			`SELECT id, display_name, short_code FROM catalog_institutions WHERE version = $1 ORDER BY position`, version)
		return err
	})
	g.Go(func() error {
		var err error
		programs, err = collect[programRow](gctx, s.pool,
			`SELECT position, program_name, category, duration_label, minimum_aggregate_score,
			        availability_kind, availability_codes
			   FROM catalog_programs WHERE version = $1 ORDER BY position`, version)
		return err
	})
	g.Go(func() error {
		var err error
		requirements, err = collect[requirementRow](gctx, s.pool,
			`SELECT program_position, subject_name, minimum_level, mandatory
			   FROM catalog_program_requirements WHERE version = $1
			  ORDER BY program_position, position`, version)
		return err
	})
	g.Go(func() error {
		var err error
		subjects, err = collect[subjectRow](gctx, s.pool,
			`SELECT name, aliases, non_contributing, mandatory FROM catalog_subjects WHERE version = $1 ORDER BY position`, version)
		return err
	})
	if err := g.Wait(); err != nil {
		return catalog.Snapshot{}, fmt.Errorf("load catalog %s: %w", version, err)
	}

	return assemble(version, institutions, programs, requirements, subjects), nil
}

func (s *Source) resolveVersion(ctx context.Context, pinned string) (string, error) {
	query := `SELECT version FROM catalog_versions ORDER BY published_at DESC, version DESC LIMIT 1`
	args := []any{}
	if pinned != "" {
		query = `SELECT version FROM catalog_versions WHERE version = $1`
		args = append(args, pinned)
	}
	var version string
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("catalog version %q: %w", pinned, sentinel.ErrNotFound)
		}
		return "", fmt.Errorf("resolve catalog version: %w", err)
	}
	return version, nil
}

func collect[T any](ctx context.Context, pool *pgxpool.Pool, query string, args ...any) ([]T, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[T])
}

func assemble(version string, institutions []institutionRow, programs []programRow, requirements []requirementRow, subjects []subjectRow) catalog.Snapshot {
	snap := catalog.Snapshot{
		Version:      version,
		Institutions: make([]catalog.Institution, 0, len(institutions)),
		Rules:        make([]catalog.Rule, 0, len(programs)),
	}
	for _, r := range institutions {
		snap.Institutions = append(snap.Institutions, catalog.Institution{ID: r.ID, DisplayName: r.DisplayName, ShortCode: r.ShortCode})
	}

	byProgram := make(map[int][]catalog.RequiredSubject)
	for _, r := range requirements {
		byProgram[r.ProgramPosition] = append(byProgram[r.ProgramPosition], catalog.RequiredSubject{
			Name:         r.SubjectName,
			MinimumLevel: subject.Level(r.MinimumLevel),
			Mandatory:    r.Mandatory,
		})
	}
	for _, p := range programs {
		snap.Rules = append(snap.Rules, catalog.Rule{
			ProgramName:           p.ProgramName,
			Category:              p.Category,
			DurationLabel:         p.DurationLabel,
			MinimumAggregateScore: p.MinimumAggregateScore,
			RequiredSubjects:      byProgram[p.Position],
			Availability:          availability(p.AvailabilityKind, p.AvailabilityCodes),
		})
	}

	for _, r := range subjects {
		snap.Subjects = append(snap.Subjects, subject.Definition{
			Name:            r.Name,
			Aliases:         r.Aliases,
			NonContributing: r.NonContributing,
			Mandatory:       r.Mandatory,
		})
	}
	return snap
}

// availability keeps unknown kinds as stored so catalog.Validate rejects them.
func availability(kind string, codes []string) catalog.Availability {
	switch catalog.AvailabilityKind(kind) {
	case catalog.AvailabilityUniversal:
		return catalog.Universal()
	case catalog.AvailabilityExcludeList:
		return catalog.ExcludeList(codes...)
	case catalog.AvailabilityIncludeOnly:
		return catalog.IncludeOnly(codes...)
	default:
		return catalog.Availability{Kind: catalog.AvailabilityKind(kind), Codes: codes}
	}
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
