package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"gonogo/internal/audit"
)

// KafkaPublisher writes records to an audit topic, keyed by identifier so
// every check of one entity lands on the same partition.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects a producer to brokers. Extra kgo options are
// appended after the defaults.
func NewKafkaPublisher(brokers []string, topic string, opts ...kgo.Opt) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka audit topic is required")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(0),
		kgo.AllowAutoTopicCreation(),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic}, nil
}

// Publish produces the batch and waits for every acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, records []*audit.Record) error {
	msgs := make([]*kgo.Record, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(audit.NewView(r))
		if err != nil {
			return fmt.Errorf("marshal audit record %s: %w", r.ID, err)
		}
		msgs = append(msgs, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(r.Identifier.String()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "record_id", Value: []byte(r.ID.String())},
			},
		})
	}
	if err := p.client.ProduceSync(ctx, msgs...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit records: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (p *KafkaPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}

func (p *KafkaPublisher) Close() {
	p.client.Close()
}
