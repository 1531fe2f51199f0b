package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	domoutbox "github.com/mannadev/shopping-backend/internal/domain/outbox"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Envelope is the wire format for published events. One topic carries all
// order lifecycle events; the event name travels in the envelope and a header.
type Envelope struct {
	EventID      string          `json:"event_id"`
	EventType    string          `json:"event_type"`
	EventVersion int             `json:"event_version"`
	OccurredAt   time.Time       `json:"occurred_at"`
	Producer     string          `json:"producer"`
	Payload      json.RawMessage `json:"payload"`
}

// Publisher writes domain events to a Kafka topic, keyed by event name so all
// events of one kind keep their relative order.
type Publisher struct {
	writer  *kafka.Writer
	service string
	log     *zap.Logger
}

func NewPublisher(brokers []string, topic, service string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		service: service,
		log:     logger.With(zap.String("component", "kafka_publisher")),
	}
}

func (p *Publisher) Publish(ctx context.Context, e domoutbox.Event) error {
	if e == nil {
		return nil
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: encode payload: %w", err)
	}
	env := Envelope{
		EventID:      uuid.NewString(),
		EventType:    e.EventName(),
		EventVersion: 1,
		OccurredAt:   time.Now().UTC(),
		Producer:     p.service,
		Payload:      payload,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("kafka: encode envelope: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(e.EventName()),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(e.EventName())},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("event_publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
		return fmt.Errorf("kafka: write: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
