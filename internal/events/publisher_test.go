package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishResult_InProcess(t *testing.T) {
	pub, ch, err := NewPublisher(PublisherConfig{Topic: "exam.results"}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, ch)
	defer pub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := ch.Subscribe(ctx, "exam.results")
	require.NoError(t, err)

	res := &model.ExamResult{
		ID:             uuid.New(),
		ExamID:         uuid.New(),
		StudentID:      "guest-1700000000000",
		StudentName:    "Layla",
		TotalScore:     7,
		MaxScore:       10,
		ViolationCount: 2,
		SubmitReason:   model.SubmitTimeout,
	}
	require.NoError(t, pub.PublishResult(ctx, NewResultEvent(EventResultSubmitted, res)))

	select {
	case msg := <-messages:
		assert.Equal(t, EventResultSubmitted, msg.Metadata.Get("event_type"))
		assert.Equal(t, eventSource, msg.Metadata.Get("source"))

		var got ResultEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, res.ID, got.ResultID)
		assert.Equal(t, 7.0, got.TotalScore)
		assert.Equal(t, model.SubmitTimeout, got.SubmitReason)
		msg.Ack()
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestNewResultEvent_CopiesScores(t *testing.T) {
	res := &model.ExamResult{ID: uuid.New(), TotalScore: 3, MaxScore: 5}
	ev := NewResultEvent(EventResultAmended, res)

	assert.Equal(t, EventResultAmended, ev.Type)
	assert.Equal(t, res.ID, ev.ResultID)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 3.0, ev.TotalScore)
}
