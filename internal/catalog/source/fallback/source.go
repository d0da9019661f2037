// Package fallback serves catalog snapshots from a primary source and
// switches to a secondary one while the primary keeps failing.
package fallback

import (
	"context"
	"fmt"
	"log/slog"

	"unimatch/internal/catalog"
	"unimatch/pkg/platform/circuit"
	"unimatch/pkg/platform/sentinel"
)

// Source is a catalog.Source guarded by a circuit breaker. While the breaker
// is open every fetch still probes the primary, but results come from the
// secondary until the primary has succeeded enough times in a row.
//
// Every snapshot served by the secondary is logged with its version, since
// it may be older than what the primary last served.
type Source struct {
	primary   catalog.Source
	secondary catalog.Source
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

var _ catalog.VersionedSource = (*Source)(nil)

type Option func(s *Source)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Source) {
		s.breaker = b
	}
}

func New(primary, secondary catalog.Source, opts ...Option) *Source {
	s := &Source{
		primary:   primary,
		secondary: secondary,
		breaker:   circuit.New("catalog-source", circuit.WithFailureThreshold(3), circuit.WithSuccessThreshold(2)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) Fetch(ctx context.Context) (catalog.Snapshot, error) {
	return s.fetch(ctx, "", s.primary.Fetch)
}

// FetchVersion fetches version from the primary when it is versioned. A
// secondary snapshot is only served if it is that exact version.
func (s *Source) FetchVersion(ctx context.Context, version string) (catalog.Snapshot, error) {
	vs, ok := s.primary.(catalog.VersionedSource)
	if !ok {
		return catalog.Snapshot{}, fmt.Errorf("primary catalog source is not versioned: %w", sentinel.ErrNotFound)
	}
	return s.fetch(ctx, version, func(ctx context.Context) (catalog.Snapshot, error) {
		return vs.FetchVersion(ctx, version)
	})
}

func (s *Source) fetch(ctx context.Context, want string, primary func(context.Context) (catalog.Snapshot, error)) (catalog.Snapshot, error) {
	snap, err := primary(ctx)
	if err != nil {
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logWarn(ctx, "catalog source circuit opened", "breaker", s.breaker.Name(), "error", err)
		}
		if !useFallback {
			return catalog.Snapshot{}, err
		}
		return s.fromSecondary(ctx, want, err)
	}

	usePrimary, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.logInfo(ctx, "catalog source circuit closed", "breaker", s.breaker.Name(), "catalog_version", snap.Version)
	}
	if !usePrimary {
		return s.fromSecondary(ctx, want, nil)
	}
	return snap, nil
}

func (s *Source) fromSecondary(ctx context.Context, want string, cause error) (catalog.Snapshot, error) {
	snap, err := s.secondary.Fetch(ctx)
	if err != nil {
		return catalog.Snapshot{}, err
	}
	if want != "" && snap.Version != want {
		return catalog.Snapshot{}, fmt.Errorf("fallback catalog is %s, not %s: %w", snap.Version, want, sentinel.ErrNotFound)
	}
	args := []any{"breaker", s.breaker.Name(), "fallback_version", snap.Version}
	if cause != nil {
		args = append(args, "error", cause)
	}
	s.logWarn(ctx, "serving fallback catalog", args...)
	return snap, nil
}

// Degraded reports whether snapshots currently come from the secondary.
func (s *Source) Degraded() bool {
	return s.breaker.IsOpen()
}

func (s *Source) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}

func (s *Source) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
