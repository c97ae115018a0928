package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-result-engine/pkg/config"
)

// EventTypeResultsPublished marks messages emitted after results are published.
const EventTypeResultsPublished = "results.published"

// ResultsPublished is the payload consumed by the notification service.
type ResultsPublished struct {
	ID          string    `json:"id"`
	SchoolID    string    `json:"school_id"`
	ClassID     string    `json:"class_id"`
	SessionID   string    `json:"session_id"`
	PeriodID    string    `json:"period_id"`
	SubjectID   string    `json:"subject_id,omitempty"`
	Count       int64     `json:"count"`
	PublishedBy string    `json:"published_by"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher sends result events over a watermill transport.
type Publisher struct {
	publisher message.Publisher
	topic     string
	logger    *zap.Logger
}

// NewPublisher picks kafka when brokers are configured, otherwise an in-process channel.
func NewPublisher(cfg config.EventsConfig, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	adapter := NewZapLoggerAdapter(logger)

	var pub message.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			Marshaler: kafka.DefaultMarshaler{},
		}, adapter)
		if err != nil {
			return nil, fmt.Errorf("create kafka publisher: %w", err)
		}
		pub = kafkaPub
	} else {
		pub = gochannel.NewGoChannel(gochannel.Config{}, adapter)
	}
	return NewPublisherWith(pub, cfg.Topic, logger), nil
}

// NewPublisherWith wraps an existing watermill publisher.
func NewPublisherWith(pub message.Publisher, topic string, logger *zap.Logger) *Publisher {
	if topic == "" {
		topic = EventTypeResultsPublished
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{publisher: pub, topic: topic, logger: logger}
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishResults emits a ResultsPublished message. A nil Publisher drops the event.
func (p *Publisher) PublishResults(ctx context.Context, event ResultsPublished) error {
	if p == nil {
		return nil
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.PublishedAt.IsZero() {
		event.PublishedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal results event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", EventTypeResultsPublished)
	msg.Metadata.Set("school_id", event.SchoolID)
	msg.Metadata.Set("timestamp", event.PublishedAt.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("publish results event: %w", err)
	}
	p.logger.Info("results event published",
		zap.String("event_id", event.ID),
		zap.String("class_id", event.ClassID),
		zap.String("topic", p.topic))
	return nil
}

// Close releases the transport.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.publisher.Close()
}
