package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
)

// Handler processes one decoded result event.
type Handler func(ctx context.Context, event *ResultEvent) error

// Consume reads result events from sub until ctx is done. Messages that
// cannot be decoded are acked and dropped; handler errors nack the message.
func Consume(ctx context.Context, sub message.Subscriber, topic string, handle Handler, log zerolog.Logger) error {
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}

	log = log.With().Str("component", "event_consumer").Str("topic", topic).Logger()
	for msg := range messages {
		var event ResultEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			log.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable event")
			msg.Ack()
			continue
		}
		if err := handle(msg.Context(), &event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID).Msg("Event handler failed")
			msg.Nack()
			continue
		}
		msg.Ack()
	}
	return nil
}

// LogHandler records each event at info level. It is the default consumer
// when events stay in-process.
func LogHandler(log zerolog.Logger) Handler {
	return func(_ context.Context, event *ResultEvent) error {
		log.Info().
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Str("result_id", event.ResultID.String()).
			Str("exam_id", event.ExamID.String()).
			Float64("total", event.TotalScore).
			Msg("Result event")
		return nil
	}
}
