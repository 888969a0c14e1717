// Package audittrail publishes every store-write signal to a Kafka
// topic as a durable, replayable audit record, alongside (not instead
// of) the in-process SSE fan-out. The event bus serves live clients;
// the trail serves after-action review and compliance export.
package audittrail

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"ims/internal/store"
)

// DefaultTopic is the Kafka topic store-write records land on.
const DefaultTopic = "ims.store-writes"

// Record is the wire shape of one audit-trail entry.
type Record struct {
	Timestamp         time.Time `json:"timestamp"`
	Class             string    `json:"class"`
	Event             string    `json:"event"`
	IncidentNumber    *int      `json:"incident_number,omitempty"`
	FieldReportNumber *int      `json:"field_report_number,omitempty"`
}

// Trail implements store.Sink over a Kafka producer. Publishing is
// asynchronous and best-effort: a broker outage is logged and dropped,
// never surfaced to the dispatcher who saved the incident.
type Trail struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
	clock  func() time.Time
}

// New connects a producer and ensures the topic exists. The kadm
// ensure-topic call is idempotent; running replicas race it safely.
func New(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*Trail, error) {
	if topic == "" {
		topic = DefaultTopic
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}

	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is the steady state; anything else is worth a
		// log line but not a refusal to start.
		logger.InfoContext(ctx, "audit trail topic create", "topic", topic, "result", err.Error())
	}

	return &Trail{client: client, topic: topic, logger: logger, clock: time.Now}, nil
}

// Publish implements store.Sink.
func (t *Trail) Publish(evt store.WriteEvent) {
	rec := Record{
		Timestamp: t.clock().UTC(),
		Class:     string(evt.Class),
		Event:     evt.Event.String(),
	}
	if evt.IncidentNumber != nil {
		n := evt.IncidentNumber.Int()
		rec.IncidentNumber = &n
	}
	if evt.FieldReportNumber != nil {
		n := evt.FieldReportNumber.Int()
		rec.FieldReportNumber = &n
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}

	t.client.Produce(context.Background(), &kgo.Record{
		Topic: t.topic,
		Key:   []byte(rec.Event),
		Value: payload,
	}, func(_ *kgo.Record, err error) {
		if err != nil {
			t.logger.Warn("audit trail publish failed", "error", err, "class", rec.Class)
		}
	})
}

// Flush blocks until every buffered record has been acknowledged.
func (t *Trail) Flush(ctx context.Context) error {
	return t.client.Flush(ctx)
}

// Close flushes pending records and releases the producer.
func (t *Trail) Close(ctx context.Context) error {
	if err := t.client.Flush(ctx); err != nil {
		return err
	}
	t.client.Close()
	return nil
}

var _ store.Sink = (*Trail)(nil)
