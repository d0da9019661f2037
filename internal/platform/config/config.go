package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process level configuration.
type Config struct {
	Addr        string
	Environment string
	LogLevel    string

	// MinContributingSubjects is how many score-contributing subjects a
	// profile needs before matching runs.
	MinContributingSubjects int
	MaxPageSize             int

	Catalog CatalogConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
}

// CatalogConfig selects where snapshots come from. With both set, Postgres
// is primary and File is the fallback while Postgres keeps failing.
type CatalogConfig struct {
	File         string
	DatabaseURL  string
	PollInterval time.Duration
}

// RedisConfig configures the version pointer client. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	VersionKey   string
}

// KafkaConfig configures catalog event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// IsDevelopment reports whether the process runs in a local environment.
func (c Config) IsDevelopment() bool {
	return c.Environment == "" || c.Environment == "development" || c.Environment == "local"
}

// FromEnv builds a Config from environment variables so main stays lean.
// Every malformed value is reported, not just the first.
func FromEnv() (Config, error) {
	p := &parser{}
	cfg := Config{
		Addr:                    p.str("UNIMATCH_ADDR", ":8080"),
		Environment:             p.str("ENVIRONMENT", "development"),
		LogLevel:                p.str("LOG_LEVEL", "info"),
		MinContributingSubjects: p.integer("MIN_CONTRIBUTING_SUBJECTS", 6),
		MaxPageSize:             p.integer("MAX_PAGE_SIZE", 100),
		Catalog: CatalogConfig{
			File:         p.str("CATALOG_FILE", ""),
			DatabaseURL:  p.str("DATABASE_URL", ""),
			PollInterval: p.duration("CATALOG_POLL_INTERVAL", 30*time.Second),
		},
		Redis: RedisConfig{
			URL:          p.str("REDIS_URL", ""),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			VersionKey:   p.str("CATALOG_VERSION_KEY", "unimatch:catalog:version"),
		},
		Kafka: KafkaConfig{
			Brokers: p.list("KAFKA_BROKERS"),
			Topic:   p.str("CATALOG_EVENTS_TOPIC", "unimatch.catalog.resolved"),
		},
	}

	if cfg.MinContributingSubjects < 1 {
		p.fail("MIN_CONTRIBUTING_SUBJECTS", "must be at least 1")
	}
	if cfg.MaxPageSize < 1 {
		p.fail("MAX_PAGE_SIZE", "must be at least 1")
	}
	if cfg.Catalog.PollInterval <= 0 {
		p.fail("CATALOG_POLL_INTERVAL", "must be positive")
	}
	if cfg.Catalog.File == "" && cfg.Catalog.DatabaseURL == "" {
		p.fail("CATALOG_FILE", "either CATALOG_FILE or DATABASE_URL is required")
	}
	return cfg, errors.Join(p.errs...)
}

type parser struct {
	errs []error
}

func (p *parser) fail(key, msg string) {
	p.errs = append(p.errs, fmt.Errorf("%s: %s", key, msg))
}

func (p *parser) str(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (p *parser) integer(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, "must be an integer")
		return fallback
	}
	return n
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(key, "must be a duration such as 30s")
		return fallback
	}
	return d
}

func (p *parser) list(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
