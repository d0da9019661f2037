// Package versionwatch reloads the catalog when the published version
// pointer in Redis moves.
package versionwatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"unimatch/internal/catalog"
	"unimatch/pkg/platform/sentinel"
)

const DefaultInterval = 30 * time.Second

// Reader is the part of the Redis client the watcher needs.
type Reader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Writer is the part of the Redis client SetVersion needs.
type Writer interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Registry is the catalog registry as seen by the watcher.
type Registry interface {
	State() (catalog.State, string)
	Reload(ctx context.Context, src catalog.Source) (*catalog.Resolved, error)
	ReloadVersion(ctx context.Context, src catalog.VersionedSource, version string) (*catalog.Resolved, error)
}

type Watcher struct {
	rdb      Reader
	key      string
	interval time.Duration
	registry Registry
	source   catalog.Source
	logger   *slog.Logger

	mu sync.Mutex
	// unservable is a pointer value the source could not serve. It is not
	// fetched again until the pointer moves.
	unservable string
}

type Option func(w *Watcher)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

func WithInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// New watches key and reloads registry from source when it changes.
func New(rdb Reader, key string, registry Registry, source catalog.Source, opts ...Option) *Watcher {
	w := &Watcher{
		rdb:      rdb,
		key:      key,
		interval: DefaultInterval,
		registry: registry,
		source:   source,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run polls until ctx is done. Poll failures are logged and retried on the
// next tick; the current snapshot keeps serving.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil && ctx.Err() == nil {
			w.logWarn(ctx, "catalog version poll failed", "version_key", w.key, "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Poll reads the pointer once and loads the version it names when that is
// not the current one. Versioned sources are asked for that exact version,
// which also rolls the registry back when the pointer moves to an older
// version. It reports whether the current version changed.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	want, err := w.rdb.Get(ctx, w.key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read catalog version pointer: %w", err)
	}

	_, current := w.registry.State()
	if want == "" || want == current {
		w.markUnservable("")
		return false, nil
	}
	if w.isUnservable(want) {
		return false, nil
	}

	var resolved *catalog.Resolved
	if vs, ok := w.source.(catalog.VersionedSource); ok {
		resolved, err = w.registry.ReloadVersion(ctx, vs, want)
		if errors.Is(err, sentinel.ErrNotFound) {
			w.markUnservable(want)
			w.logWarn(ctx, "catalog source does not hold the pointed version",
				"wanted_version", want,
				"catalog_version", current,
				"error", err,
			)
			return false, nil
		}
	} else {
		resolved, err = w.registry.Reload(ctx, w.source)
	}
	if err != nil {
		return false, err
	}

	if resolved.Version != want {
		w.markUnservable(want)
		w.logWarn(ctx, "catalog source does not serve the pointed version",
			"wanted_version", want,
			"catalog_version", resolved.Version,
		)
	} else if w.logger != nil {
		w.logger.InfoContext(ctx, "catalog reloaded from version pointer",
			"previous_version", current,
			"catalog_version", resolved.Version,
		)
	}
	return resolved.Version != current, nil
}

func (w *Watcher) markUnservable(version string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unservable = version
}

func (w *Watcher) isUnservable(version string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return version != "" && w.unservable == version
}

func (w *Watcher) logWarn(ctx context.Context, msg string, args ...any) {
	if w.logger != nil {
		w.logger.WarnContext(ctx, msg, args...)
	}
}

// SetVersion moves the pointer. Watchers pick it up on their next poll.
func SetVersion(ctx context.Context, rdb Writer, key, version string) error {
	if version == "" {
		return errors.New("version is required")
	}
	if err := rdb.Set(ctx, key, version, 0).Err(); err != nil {
		return fmt.Errorf("set catalog version pointer: %w", err)
	}
	return nil
}
