package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

type MonitorHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(examService *service.ExamService, monitorService *service.MonitorService, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/staff/exams/:id/monitor
// Sends a snapshot of live candidates, then forwards every monitor event
// published for the exam. A fresh snapshot follows every refresh interval.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		status, code := mapError(err)
		response.Fail(c, status, code)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	examInfo := gin.H{
		"id":              examID.String(),
		"title":           exam.Title,
		"duration":        exam.DurationMinutes,
		"total_questions": len(exam.Questions),
	}
	h.sendSnapshot(c, reqCtx, examID, "snapshot", examInfo)

	pubsub := h.monitorService.Subscribe(reqCtx, examID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	// Skip refreshes until someone has actually joined.
	hasCandidates := false

	h.log.Info().Str("exam_id", examID.String()).Msg("Staff attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Staff disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward raw JSON; the payload is already a MonitorEvent.
			writeSSE(c, []byte(msg.Payload))
			hasCandidates = true

		case <-refreshTicker.C:
			if !hasCandidates {
				continue
			}
			h.sendSnapshot(c, reqCtx, examID, "refresh", nil)

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, parent context.Context, examID uuid.UUID, kind string, examInfo gin.H) {
	ctx, cancel := context.WithTimeout(parent, refreshTimeout)
	defer cancel()

	snap, err := h.monitorService.Snapshot(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to build monitor snapshot")
		return
	}

	data := gin.H{"stats": snap}
	if examInfo != nil {
		data["exam"] = examInfo
	}
	c.SSEvent("message", gin.H{"type": kind, "data": data})
	c.Writer.Flush()
}

func writeSSE(c *gin.Context, payload []byte) {
	c.Writer.Write([]byte("data: "))
	c.Writer.Write(payload)
	c.Writer.Write([]byte("\n\n"))
	c.Writer.Flush()
}
