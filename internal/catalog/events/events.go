// Package events carries catalog lifecycle notifications over Kafka. The
// replica that loads a new snapshot announces it; the others follow.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"unimatch/internal/catalog"
	"unimatch/internal/platform/kafka"
)

const headerEventID = "event_id"

// Producer is the subset of kafka.Producer the publisher uses.
type Producer interface {
	Produce(ctx context.Context, msg kafka.Message) error
}

// Publisher implements catalog.EventPublisher. Messages are keyed by
// catalog version.
type Publisher struct {
	producer Producer
}

func NewPublisher(producer Producer) *Publisher {
	return &Publisher{producer: producer}
}

func (p *Publisher) PublishResolved(ctx context.Context, event catalog.ResolvedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal resolved event: %w", err)
	}
	return p.producer.Produce(ctx, kafka.Message{
		Key:       []byte(event.Version),
		Value:     payload,
		Headers:   map[string]string{headerEventID: event.ID},
		Timestamp: event.ResolvedAt,
	})
}

// Registry is the catalog registry as seen by the follower.
type Registry interface {
	State() (catalog.State, string)
	Reload(ctx context.Context, src catalog.Source) (*catalog.Resolved, error)
}

// Follower reloads the local registry when another replica announces a
// version this one is not serving.
type Follower struct {
	registry Registry
	source   catalog.Source
	logger   *slog.Logger
}

func NewFollower(registry Registry, source catalog.Source, logger *slog.Logger) *Follower {
	return &Follower{registry: registry, source: source, logger: logger}
}

// Handle implements kafka.Handler. Undecodable payloads are skipped.
func (f *Follower) Handle(ctx context.Context, msg *kafka.Message) error {
	var event catalog.ResolvedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		f.logger.WarnContext(ctx, "skipping undecodable catalog event",
			"key", string(msg.Key),
			"error", err,
		)
		return nil
	}

	_, current := f.registry.State()
	if event.Version == "" || event.Version == current {
		return nil
	}

	resolved, err := f.registry.Reload(ctx, f.source)
	if err == nil && resolved.Version != event.Version {
		// The reload may have joined a fetch that started before the
		// announced version was published; a second one starts fresh.
		resolved, err = f.registry.Reload(ctx, f.source)
	}
	if err != nil {
		return fmt.Errorf("follow catalog version %s: %w", event.Version, err)
	}
	if resolved.Version != event.Version {
		f.logger.WarnContext(ctx, "catalog source does not serve the announced version",
			"event_id", msg.Headers[headerEventID],
			"announced_version", event.Version,
			"catalog_version", resolved.Version,
		)
		return nil
	}
	f.logger.InfoContext(ctx, "catalog reloaded after peer announcement",
		"event_id", msg.Headers[headerEventID],
		"announced_version", event.Version,
		"catalog_version", resolved.Version,
	)
	return nil
}
