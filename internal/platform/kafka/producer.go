package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer writes messages synchronously to one default topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer connects to brokers. Messages without a topic go to topic.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer needs at least one broker")
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ClientID("unimatch"),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: cl, topic: topic}, nil
}

// Produce blocks until the broker acknowledges msg or ctx is done.
func (p *Producer) Produce(ctx context.Context, msg Message) error {
	if err := p.client.ProduceSync(ctx, toRecord(p.topic, msg)).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", p.topic, err)
	}
	return nil
}

// Health pings the cluster.
func (p *Producer) Health(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *Producer) Close() {
	p.client.Close()
}
