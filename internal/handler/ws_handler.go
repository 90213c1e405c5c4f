package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/i18n"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/session"
	ws "github.com/stemsi/exam-portal/internal/websocket"
)

const (
	tickInterval    = time.Second
	finalizeTimeout = 2 * time.Minute
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler runs exam sessions over WebSocket. Each connection owns exactly
// one session; all session mutations happen on the connection's loop.
type WSHandler struct {
	sessionService *service.ExamSessionService
	catalog        *i18n.Catalog
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, catalog *i18n.Catalog, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		catalog:        catalog,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// ExamSession godoc
// WS /ws/v1/exams/:exam_id/session
// Authenticated users pass ?token=; guests enter by name.
func (h *WSHandler) ExamSession(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sess, err := h.sessionService.Start(c.Request.Context(), examID)
	if err != nil {
		status, code := mapError(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to start session")
		}
		response.Fail(c, status, code)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	run := &sessionRun{
		h:      h,
		conn:   conn,
		sess:   sess,
		claims: middleware.GetClaims(c),
		ctx:    c.Request.Context(),
		log:    h.log.With().Str("exam_id", examID.String()).Logger(),
	}
	run.loop()
}

// sessionRun is the state of one connection's event loop.
type sessionRun struct {
	h      *WSHandler
	conn   *websocket.Conn
	sess   *session.Session
	claims *service.Claims
	ctx    context.Context
	log    zerolog.Logger
}

func (r *sessionRun) loop() {
	msgs := make(chan ws.RequestPayload)
	done := make(chan struct{})
	defer close(done)

	ws.KeepAlive(r.conn, ws.ReadWait())

	go func() {
		defer close(msgs)
		for {
			var msg ws.RequestPayload
			if err := ws.ReadJSON(r.conn, &msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					r.log.Warn().Err(err).Msg("Unexpected close")
				} else {
					r.log.Debug().Msg("Connection closed")
				}
				return
			}
			select {
			case msgs <- msg:
			case <-done:
				return
			}
		}
	}()

	ws.WriteTyped(r.conn, ws.NewLayoutResponse(r.sess))
	r.writePhase()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	pinger := time.NewTicker(ws.PingPeriod)
	defer pinger.Stop()

	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				r.h.sessionService.Leave(context.WithoutCancel(r.ctx), r.sess)
				return
			}
			if finished := r.handle(&msg); finished {
				return
			}

		case <-pinger.C:
			if err := ws.WritePing(r.conn); err != nil {
				r.log.Debug().Err(err).Msg("Ping failed")
			}

		case <-ticker.C:
			if r.sess.Proctor.DismissExpired() {
				ws.WriteTyped(r.conn, ws.WarningClearedResponse{Event: ws.EventWarningCleared})
			}
			if r.sess.Proctor.Phase() != session.PhaseInProgress || !r.sess.Exam.Settings.EnableTimer {
				continue
			}
			expired := r.sess.Proctor.Tick()
			ws.WriteTyped(r.conn, ws.TickResponse{Event: ws.EventTick, TimeLeftSeconds: r.sess.Proctor.TimeLeft()})
			if expired {
				r.finalize()
				return
			}
		}
	}
}

// handle applies one client action. It returns true once the session has
// produced its result and the connection should close.
func (r *sessionRun) handle(msg *ws.RequestPayload) bool {
	svc := r.h.sessionService

	switch msg.Action {
	case ws.ActionPing:
		ws.WriteTyped(r.conn, ws.PongResponse{Event: ws.EventPong})

	case ws.ActionEnter:
		candidate := service.CandidateFor(r.claims, msg.Name, time.Now())
		if err := svc.Enter(r.ctx, r.sess, candidate, msg.Fullscreen); err != nil {
			r.writeErr(err)
			return false
		}
		r.log = r.log.With().Str("candidate_id", candidate.ID).Logger()
		r.writePhase()

	case ws.ActionFullscreen:
		reqErr := msg.Error
		if !msg.Granted && reqErr == "" {
			reqErr = "fullscreen not granted"
		}
		if err := svc.FullscreenResult(r.ctx, r.sess, reqErr); err != nil {
			r.writeErr(err)
			return false
		}
		r.writePhase()

	case ws.ActionVisibility:
		if msg.Hidden {
			r.violation(model.ViolationTabHidden)
		}

	case ws.ActionFullscreenExit:
		r.violation(model.ViolationFullscreenExit)

	case ws.ActionAnswer:
		if err := r.answer(msg); err != nil {
			r.writeErr(err)
			return false
		}
		svc.Answered(r.ctx, r.sess)
		r.writePhase()

	case ws.ActionClearAnswer:
		if r.sess.Proctor.Phase() != session.PhaseInProgress {
			r.writeErr(session.ErrNotInProgress)
			return false
		}
		if err := r.sess.Answers.Clear(msg.QID); err != nil {
			r.writeErr(err)
			return false
		}
		svc.Answered(r.ctx, r.sess)
		r.writePhase()

	case ws.ActionSubmit:
		if err := svc.Submit(r.sess, msg.Confirmed); err != nil {
			r.writeErr(err)
			return false
		}
		r.finalize()
		return true

	default:
		r.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
		ws.WriteError(r.conn, string(response.ErrInvalidPayload), "unknown action: "+string(msg.Action))
	}
	return false
}

func (r *sessionRun) answer(msg *ws.RequestPayload) error {
	if r.sess.Proctor.Phase() != session.PhaseInProgress {
		return session.ErrNotInProgress
	}
	switch {
	case msg.Choice != nil:
		return r.sess.Answers.SetChoice(msg.QID, *msg.Choice)
	case msg.Text != nil:
		return r.sess.Answers.SetText(msg.QID, *msg.Text)
	default:
		return session.ErrWrongAnswerKind
	}
}

func (r *sessionRun) violation(kind model.ViolationKind) {
	w, recorded := r.h.sessionService.Violation(r.ctx, r.sess, kind)
	if !recorded {
		return
	}
	ws.WriteTyped(r.conn, ws.WarningResponse{
		Event:          ws.EventWarning,
		Kind:           w.Kind,
		Message:        r.h.catalog.Warning(w.Kind),
		ViolationCount: r.sess.Proctor.ViolationCount(),
		ExpiresInMs:    time.Until(w.ExpiresAt).Milliseconds(),
	})
}

// finalize grades and stores the result. Grading continues even if the
// client has already gone away.
func (r *sessionRun) finalize() {
	ws.WriteTyped(r.conn, ws.SubmittingResponse{
		Event:  ws.EventSubmitting,
		Reason: r.sess.Proctor.SubmitReason(),
	})

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), finalizeTimeout)
	defer cancel()

	res, err := r.h.sessionService.Finalize(ctx, r.sess)
	if err != nil {
		if !errors.Is(err, service.ErrResultClaimed) {
			r.log.Error().Err(err).Msg("Failed to finalize session")
		}
		r.writeErr(err)
		return
	}

	r.writePhase()
	ws.WriteTyped(r.conn, ws.NewResultResponse(res, r.sess.Layout))
	r.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "submitted"),
		time.Now().Add(time.Second))
}

func (r *sessionRun) writePhase() {
	ws.WriteTyped(r.conn, ws.PhaseResponse{Event: ws.EventPhase, State: r.sess.Proctor.State()})
}

func (r *sessionRun) writeErr(err error) {
	_, code := mapError(err)
	ws.WriteError(r.conn, string(code), response.GetMessage(code))
}
