package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"unimatch/internal/catalog"
	"unimatch/internal/catalog/events"
	catalogmetrics "unimatch/internal/catalog/metrics"
	"unimatch/internal/catalog/source/fallback"
	filesource "unimatch/internal/catalog/source/file"
	pgsource "unimatch/internal/catalog/source/postgres"
	"unimatch/internal/catalog/source/versionwatch"
	eligibilityhandler "unimatch/internal/eligibility/handler"
	eligibilitymetrics "unimatch/internal/eligibility/metrics"
	eligibilityservice "unimatch/internal/eligibility/service"
	"unimatch/internal/platform/config"
	"unimatch/internal/platform/httpserver"
	"unimatch/internal/platform/kafka"
	"unimatch/internal/platform/logger"
	httpmetrics "unimatch/internal/platform/metrics"
	"unimatch/internal/platform/redis"
	httptransport "unimatch/internal/transport/http"
)

const shutdownGrace = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	log := logger.New(cfg.LogLevel, cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("unimatch stopped with error", "error", err)
		os.Exit(1)
	}
}

type infra struct {
	source   catalog.Source
	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *kafka.Producer
	consumer *kafka.Consumer
}

func (i *infra) close() {
	if i.consumer != nil {
		i.consumer.Close()
	}
	if i.producer != nil {
		i.producer.Close()
	}
	if i.redis != nil {
		_ = i.redis.Close()
	}
	if i.pool != nil {
		i.pool.Close()
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	deps, err := connect(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close()

	registryOpts := []catalog.Option{
		catalog.WithLogger(log),
		catalog.WithMetrics(catalogmetrics.New()),
	}
	if deps.producer != nil {
		registryOpts = append(registryOpts, catalog.WithEventPublisher(events.NewPublisher(deps.producer)))
	}
	registry := catalog.NewRegistry(registryOpts...)

	// An unloadable catalog at startup is not fatal: /health reports
	// degraded and evaluations answer catalog_unresolved until a reload works.
	if _, err := registry.Reload(ctx, deps.source); err != nil {
		log.ErrorContext(ctx, "initial catalog load failed", "error", err)
	}

	svc := eligibilityservice.New(registry,
		eligibilityservice.WithLogger(log),
		eligibilityservice.WithMetrics(eligibilitymetrics.New()),
		eligibilityservice.WithMinimumSubjects(cfg.MinContributingSubjects),
	)
	handler := eligibilityhandler.New(svc, log, cfg.MaxPageSize)

	var checks []httptransport.Check
	if deps.pool != nil {
		checks = append(checks, httptransport.Check{Name: "postgres", Probe: deps.pool.Ping})
	}
	if deps.redis != nil {
		checks = append(checks, httptransport.Check{Name: "redis", Probe: deps.redis.Health})
	}
	if deps.producer != nil {
		checks = append(checks, httptransport.Check{Name: "kafka", Probe: deps.producer.Health})
	}
	router := httptransport.NewRouter(log, httpmetrics.New(), registry, checks, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, httpserver.New(cfg.Addr, router), shutdownGrace, log)
	})
	g.Go(func() error {
		reloadOnHangup(gctx, registry, deps.source, log)
		return nil
	})
	if deps.redis != nil {
		watcher := versionwatch.New(deps.redis, cfg.Redis.VersionKey, registry, deps.source,
			versionwatch.WithLogger(log),
			versionwatch.WithInterval(cfg.Catalog.PollInterval),
		)
		g.Go(func() error { return ignoreCancel(watcher.Run(gctx)) })
	}
	if deps.consumer != nil {
		follower := events.NewFollower(registry, deps.source, log)
		g.Go(func() error { return ignoreCancel(deps.consumer.Run(gctx, follower)) })
	}

	return g.Wait()
}

func connect(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	deps := &infra{}
	ok := false
	defer func() {
		if !ok {
			deps.close()
		}
	}()

	if cfg.Catalog.DatabaseURL != "" {
		pool, err := pgsource.Connect(ctx, cfg.Catalog.DatabaseURL)
		if err != nil {
			return nil, err
		}
		deps.pool = pool
		src := pgsource.New(pool)
		if err := src.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		deps.source = src
		if cfg.Catalog.File != "" {
			deps.source = fallback.New(src, filesource.New(cfg.Catalog.File), fallback.WithLogger(log))
		}
		log.InfoContext(ctx, "catalog source selected", "source", "postgres", "fallback_file", cfg.Catalog.File)
	} else {
		deps.source = filesource.New(cfg.Catalog.File)
		log.InfoContext(ctx, "catalog source selected", "source", "file", "path", cfg.Catalog.File)
	}

	rdb, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	deps.redis = rdb

	if len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.EnsureTopic(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, 1, 1); err != nil {
			log.WarnContext(ctx, "catalog events topic not ensured", "topic", cfg.Kafka.Topic, "error", err)
		}
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
		deps.producer = producer
		consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return nil, err
		}
		deps.consumer = consumer
	}

	ok = true
	return deps, nil
}

// reloadOnHangup re-reads the catalog source on SIGHUP.
func reloadOnHangup(ctx context.Context, registry *catalog.Registry, src catalog.Source, log *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if _, err := registry.Reload(ctx, src); err != nil {
				log.ErrorContext(ctx, "catalog reload failed", "trigger", "sighup", "error", err)
			}
		}
	}
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
