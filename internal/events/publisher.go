// Package events publishes ingest-completed notifications to Kafka so that
// downstream consumers can recompute insights without polling the database.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/claude/healthsync/internal/ingest"
	"github.com/segmentio/kafka-go"
)

// EventIngestCompleted is the event_type header of every published message.
const EventIngestCompleted = "ingest.completed"

// IngestCompleted describes one finished ingest batch.
type IngestCompleted struct {
	UserID          int            `json:"user_id"`
	Source          string         `json:"source"`
	Biomarkers      int            `json:"biomarkers"`
	SleepSessions   int            `json:"sleep_sessions"`
	WorkoutSessions int            `json:"workout_sessions"`
	Derived         int            `json:"derived"`
	Skipped         ingest.Skipped `json:"skipped"`
	OccurredAt      time.Time      `json:"occurred_at"`
}

// NewIngestCompleted builds the event for a finished batch.
func NewIngestCompleted(userID int, source string, res *ingest.Result, at time.Time) IngestCompleted {
	return IngestCompleted{
		UserID:          userID,
		Source:          source,
		Biomarkers:      res.BiomarkersCount,
		SleepSessions:   res.SleepSessionsCount,
		WorkoutSessions: res.WorkoutSessionsCount,
		Derived:         res.DerivedCount,
		Skipped:         res.Skipped,
		OccurredAt:      at.UTC(),
	}
}

// Publisher delivers ingest events.
type Publisher interface {
	Publish(ctx context.Context, ev IngestCompleted) error
	Close() error
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, IngestCompleted) error { return nil }
func (Noop) Close() error                                   { return nil }

// KafkaPublisher writes events to a single topic, keyed by user so that one
// user's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher creates a synchronous writer for topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
			Async:        false,
		},
	}
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, ev IngestCompleted) error {
	msg, err := encodeMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing %s for user %d: %w", EventIngestCompleted, ev.UserID, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeMessage(ev IngestCompleted) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encoding ingest event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.Itoa(ev.UserID)),
		Value: body,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventIngestCompleted)},
			{Key: "source", Value: []byte(ev.Source)},
		},
	}, nil
}
