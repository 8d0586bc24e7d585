package auditsink

import (
	"context"
	"encoding/json"

	"github.com/twmb/franz-go/pkg/kgo"

	"sales_import/internal/models"
)

// Kafka publishes each entry as JSON keyed by tax id, so every rejection of
// one customer lands on the same partition.
type Kafka struct {
	client *kgo.Client
	topic  string
}

func NewKafka(brokers []string, topic string) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, err
	}
	return &Kafka{client: client, topic: topic}, nil
}

func (k *Kafka) Ping(ctx context.Context) error {
	return k.client.Ping(ctx)
}

func (k *Kafka) Append(ctx context.Context, e models.DuplicateAuditEntry) error {
	value, err := json.Marshal(e)
	if err != nil {
		return err
	}
	rec := &kgo.Record{Topic: k.topic, Key: []byte(e.TaxID), Value: value}
	return k.client.ProduceSync(ctx, rec).FirstErr()
}

func (k *Kafka) Close() {
	k.client.Close()
}
