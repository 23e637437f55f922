// Package events publishes row sync outcomes to Kafka so downstream
// consumers (fulfillment, analytics) can react to created and flagged
// orders without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/gridsync-io/gridsync/internal/ingestion"
)

// DefaultTopic is the Kafka topic outcome events are published to when no
// topic is configured.
const DefaultTopic = "gridsync.order-outcomes"

// OutcomeEvent is the wire representation of one processed row outcome.
// Keyed by connection ID so all outcomes of a sheet land in one partition,
// in row order.
type OutcomeEvent struct {
	ConnectionID string    `json:"connectionId"`
	RowNumber    int       `json:"rowNumber"`
	Created      bool      `json:"created"`
	OrderID      string    `json:"orderId,omitempty"`
	OrderNumber  string    `json:"orderNumber,omitempty"`
	Skipped      bool      `json:"skipped"`
	Flagged      bool      `json:"flagged"`
	Reason       string    `json:"reason,omitempty"`
	ErrorType    string    `json:"errorType,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// NewOutcomeEvent maps a pipeline outcome to its wire representation.
func NewOutcomeEvent(connectionID string, outcome ingestion.Outcome) OutcomeEvent {
	event := OutcomeEvent{
		ConnectionID: connectionID,
		RowNumber:    outcome.RowNumber,
		Created:      outcome.Created,
		OrderID:      outcome.OrderID,
		OrderNumber:  outcome.OrderNumber,
		Skipped:      outcome.Skipped,
		Flagged:      outcome.Flagged,
		Reason:       outcome.Reason,
		OccurredAt:   time.Now().UTC(),
	}

	if outcome.Error != nil {
		event.ErrorType = string(outcome.Error.ErrorType)
		event.ErrorMessage = outcome.Error.ErrorMessage
	}

	return event
}

// Publisher emits outcome events. Implementations must be safe for
// concurrent use by batch workers.
type Publisher interface {
	PublishOutcome(ctx context.Context, event OutcomeEvent) error
	Close() error
}

// messageWriter abstracts kafka.Writer for testability.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes outcome events with the pure-Go Kafka client
// (segmentio/kafka-go).
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// brokers can be a comma-separated list of host:port.
func NewKafkaPublisher(brokers, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	if topic == "" {
		topic = DefaultTopic
	}

	var addrs []string

	for _, a := range strings.Split(brokers, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(addrs...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		logger: logger,
	}
}

// newKafkaPublisherWith is only for tests to inject a fake writer.
func newKafkaPublisherWith(w messageWriter, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &KafkaPublisher{writer: w, logger: logger}
}

// PublishOutcome marshals and writes one outcome event.
func (p *KafkaPublisher) PublishOutcome(ctx context.Context, event OutcomeEvent) error {
	value, err := json.Marshal(&event)
	if err != nil {
		return fmt.Errorf("marshal outcome event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ConnectionID),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to publish outcome event",
			slog.String("connection_id", event.ConnectionID),
			slog.Int("row_number", event.RowNumber),
			slog.String("error", err.Error()),
		)

		return fmt.Errorf("publish outcome event: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher discards outcome events. Used when no Kafka brokers are
// configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOutcome(context.Context, OutcomeEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise. Sync runs never fail because eventing is off.
func NewPublisher(brokers, topic string, logger *slog.Logger) Publisher {
	if strings.TrimSpace(brokers) == "" {
		return NoopPublisher{}
	}

	return NewKafkaPublisher(brokers, topic, logger)
}
