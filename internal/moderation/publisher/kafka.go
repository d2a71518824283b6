package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"veil/internal/moderation/models"
)

const flushTimeout = 5 * time.Second

// Kafka streams moderation audit entries to a topic so downstream consumers
// (compliance archival, anomaly detection) see every privileged action.
// Publish never blocks the moderation path: entries go through a buffered
// channel and a dropped entry is logged, not retried, because the durable
// audit log in the store remains the source of truth.
type Kafka struct {
	client *kgo.Client
	topic  string
	queue  chan models.LogEntry
	logger *slog.Logger
}

// NewKafka connects to the brokers and ensures the topic exists.
func NewKafka(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, err
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopics(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists comes back as a per-topic error; anything fatal
		// surfaces on the first produce instead.
		logger.WarnContext(ctx, "could not ensure audit topic", "topic", topic, "error", err)
	}

	return &Kafka{
		client: client,
		topic:  topic,
		queue:  make(chan models.LogEntry, 256),
		logger: logger,
	}, nil
}

// Publish enqueues an entry for asynchronous delivery.
func (k *Kafka) Publish(entry models.LogEntry) {
	select {
	case k.queue <- entry:
	default:
		k.logger.Warn("audit publish queue full, dropping entry", "audit_id", entry.ID.String())
	}
}

// Run drains the queue until the context is cancelled, then flushes what the
// client has buffered. Intended to run in its own errgroup goroutine.
func (k *Kafka) Run(ctx context.Context) error {
	defer k.client.Close()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
			defer cancel()
			if err := k.client.Flush(flushCtx); err != nil {
				k.logger.Warn("audit publisher flush failed", "error", err)
			}
			return ctx.Err()
		case entry := <-k.queue:
			k.produce(ctx, entry)
		}
	}
}

func (k *Kafka) produce(ctx context.Context, entry models.LogEntry) {
	value, err := json.Marshal(entry)
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to encode audit entry", "audit_id", entry.ID.String(), "error", err)
		return
	}
	record := &kgo.Record{
		Key:   []byte(entry.Target.ID.String()),
		Value: value,
	}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("failed to publish audit entry", "audit_id", entry.ID.String(), "error", err)
		}
	})
}
