package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// KafkaEmitter implements Emitter using segmentio/kafka-go.
type KafkaEmitter struct {
	writer *kafka.Writer
	log    zerolog.Logger
}

// NewKafkaEmitter creates a Kafka emitter that writes auth events to the given
// topic. brokers must be non-empty. Call Close when shutting down.
func NewKafkaEmitter(brokers []string, topic string, log zerolog.Logger) *KafkaEmitter {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
	}
	return &KafkaEmitter{writer: writer, log: log}
}

// Emit serializes the event as JSON and writes it to the Kafka topic, keyed by
// tenant so per-tenant ordering is preserved. Uses the request context with a
// short timeout so slow Kafka does not block callers indefinitely.
func (e *KafkaEmitter) Emit(ctx context.Context, ev Event) error {
	if e == nil || e.writer == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err = e.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(ev.TenantID),
		Value: payload,
	})
	if err != nil {
		e.log.Warn().Err(err).Str("event_type", ev.Type).Msg("kafka emit failed")
		return err
	}
	return nil
}

// Close closes the Kafka writer. Safe to call multiple times.
func (e *KafkaEmitter) Close() error {
	if e == nil || e.writer == nil {
		return nil
	}
	return e.writer.Close()
}
