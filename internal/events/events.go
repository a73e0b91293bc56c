// internal/events/events.go
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const (
	ProductExtracted  = "product.extracted"
	ScriptGenerated   = "script.generated"
	ModuleRegenerated = "script.module_regenerated"
	VideoRequested    = "video.requested"
	VideoCompleted    = "video.completed"
	VideoFailed       = "video.failed"
	CreditsCommitted  = "credits.committed"
	CreditsToppedUp   = "credits.topped_up"
)

type Event struct {
	Type       string                 `json:"type"`
	UserID     string                 `json:"userId"`
	SubjectID  string                 `json:"subjectId,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurredAt"`
}

// Publisher delivers domain events. Delivery is best effort and must never
// fail the operation that emitted the event.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopPublisher) Close() error { return nil }

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer      messageWriter
	topicPrefix string
}

func NewKafkaPublisher(brokers []string, topicPrefix string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logrus.WithError(err).WithField("count", len(messages)).Warn("Failed to deliver events")
			}
		},
	}
	return newKafkaPublisher(w, topicPrefix)
}

func newKafkaPublisher(w messageWriter, topicPrefix string) *KafkaPublisher {
	return &KafkaPublisher{writer: w, topicPrefix: topicPrefix}
}

// Events are keyed by user so one user's events stay ordered in a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("kafka: json.Marshal failed: %w", err)
	}

	msg := kafka.Message{
		Topic: p.Topic(event.Type),
		Key:   []byte(event.UserID),
		Value: data,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: write failed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Topic(eventType string) string {
	return fmt.Sprintf("%s.%s", p.topicPrefix, eventType)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// New picks Kafka when brokers are configured.
func New(brokers []string, topicPrefix string) Publisher {
	if len(brokers) == 0 {
		return NoopPublisher{}
	}
	logrus.WithField("brokers", brokers).Info("Publishing domain events to Kafka")
	return NewKafkaPublisher(brokers, topicPrefix)
}

// Emit publishes and logs instead of returning the error.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, event); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"event":   event.Type,
			"user_id": event.UserID,
		}).Warn("Failed to publish event")
	}
}
