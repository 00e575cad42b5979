// Package events publishes puzzle lifecycle events for downstream consumers
// (reporting, notifications). Publishing is best-effort and never blocks the
// lifecycle.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types emitted by the puzzle service.
const (
	TypePuzzlePublished = "puzzle.published"
	TypePuzzleEvaluated = "puzzle.evaluated"
)

// Event is one lifecycle notification.
type Event struct {
	Type       string    `json:"type"`
	PuzzleID   string    `json:"puzzle_id"`
	Category   string    `json:"category"`
	Model      string    `json:"model"`
	Difficulty float64   `json:"difficulty"`
	Verdict    string    `json:"verdict,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards events; used when no broker is configured.
type Nop struct{}

// Publish discards the event.
func (Nop) Publish(context.Context, Event) error { return nil }

// Close is a no-op.
func (Nop) Close() error { return nil }

// KafkaPublisher writes events to a Kafka topic keyed by puzzle id.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher builds a synchronous publisher for the given brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
	}, nil
}

// Publish writes one event record.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PuzzleID),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close flushes and releases the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeEvent(event Event) ([]byte, error) {
	if event.Type == "" {
		return nil, fmt.Errorf("event type is required")
	}
	if event.PuzzleID == "" {
		return nil, fmt.Errorf("event puzzle id is required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return payload, nil
}

var (
	_ Publisher = Nop{}
	_ Publisher = (*KafkaPublisher)(nil)
)
