// Package events publishes result lifecycle events for downstream consumers
// such as notification or analytics services.
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
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
)

const (
	EventResultSubmitted = "exam.result.submitted"
	EventResultAmended   = "exam.result.amended"

	eventSource  = "exam-portal"
	eventVersion = "1"
)

// ResultEvent is the payload published when a result is created or re-graded.
type ResultEvent struct {
	ID             string             `json:"id"`
	Type           string             `json:"type"`
	ResultID       uuid.UUID          `json:"result_id"`
	ExamID         uuid.UUID          `json:"exam_id"`
	StudentID      string             `json:"student_id"`
	StudentName    string             `json:"student_name"`
	TotalScore     float64            `json:"total_score"`
	MaxScore       float64            `json:"max_score"`
	ViolationCount int                `json:"violation_count"`
	SubmitReason   model.SubmitReason `json:"submit_reason,omitempty"`
	Timestamp      time.Time          `json:"timestamp"`
}

// NewResultEvent builds an event of the given type from a result.
func NewResultEvent(eventType string, res *model.ExamResult) *ResultEvent {
	return &ResultEvent{
		ID:             uuid.NewString(),
		Type:           eventType,
		ResultID:       res.ID,
		ExamID:         res.ExamID,
		StudentID:      res.StudentID,
		StudentName:    res.StudentName,
		TotalScore:     res.TotalScore,
		MaxScore:       res.MaxScore,
		ViolationCount: res.ViolationCount,
		SubmitReason:   res.SubmitReason,
		Timestamp:      time.Now().UTC(),
	}
}

// Publisher publishes result events.
type Publisher interface {
	PublishResult(ctx context.Context, event *ResultEvent) error
	Close() error
}

// PublisherConfig holds configuration for the event publisher.
type PublisherConfig struct {
	// KafkaBrokers selects Kafka; empty means an in-process channel.
	KafkaBrokers []string
	Topic        string
}

// WatermillPublisher implements Publisher on top of any watermill publisher.
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	log       zerolog.Logger
}

// NewPublisher creates a Kafka-backed publisher, or a gochannel one when no
// brokers are configured. The returned GoChannel is non-nil only in the
// latter case so callers can subscribe in-process.
func NewPublisher(cfg PublisherConfig, log zerolog.Logger) (*WatermillPublisher, *gochannel.GoChannel, error) {
	wlog := NewZerologAdapter(log)
	log = log.With().Str("component", "event_publisher").Logger()

	if len(cfg.KafkaBrokers) == 0 {
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wlog)
		log.Info().Str("topic", cfg.Topic).Msg("Publishing result events in-process")
		return &WatermillPublisher{publisher: ch, topic: cfg.Topic, log: log}, ch, nil
	}

	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   cfg.KafkaBrokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, wlog)
	if err != nil {
		return nil, nil, fmt.Errorf("create Kafka publisher: %w", err)
	}

	log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.Topic).Msg("Publishing result events to Kafka")
	return &WatermillPublisher{publisher: pub, topic: cfg.Topic, log: log}, nil, nil
}

// PublishResult marshals and publishes one event.
func (p *WatermillPublisher) PublishResult(ctx context.Context, event *ResultEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal result event: %w", err)
	}

	msg := message.NewMessage(event.ID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", event.Type)
	msg.Metadata.Set("source", eventSource)
	msg.Metadata.Set("version", eventVersion)
	msg.Metadata.Set("timestamp", event.Timestamp.Format(time.RFC3339))

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		p.log.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("Failed to publish result event")
		return fmt.Errorf("publish result event: %w", err)
	}

	p.log.Debug().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("topic", p.topic).
		Msg("Published result event")
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
