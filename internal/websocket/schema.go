package websocket

import (
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEnter          Action = "enter"
	ActionFullscreen     Action = "fullscreen"
	ActionVisibility     Action = "visibility"
	ActionFullscreenExit Action = "fullscreen_exit"
	ActionAnswer         Action = "answer"
	ActionClearAnswer    Action = "clear_answer"
	ActionSubmit         Action = "submit"
	ActionPing           Action = "ping"
)

// RequestPayload is the union of every client message. Only the fields the
// action needs are read.
type RequestPayload struct {
	Action Action `json:"action"`

	// enter
	Name       string `json:"name,omitempty"`
	Fullscreen bool   `json:"fullscreen,omitempty"`

	// fullscreen
	Granted bool   `json:"granted,omitempty"`
	Error   string `json:"error,omitempty"`

	// visibility
	Hidden bool `json:"hidden,omitempty"`

	// answer, clear_answer
	QID    string  `json:"q_id,omitempty"`
	Choice *int    `json:"choice,omitempty"`
	Text   *string `json:"text,omitempty"`

	// submit
	Confirmed bool `json:"confirmed,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventLayout         Event = "layout"
	EventPhase          Event = "phase"
	EventTick           Event = "tick"
	EventWarning        Event = "warning"
	EventWarningCleared Event = "warning_cleared"
	EventSubmitting     Event = "submitting"
	EventResult         Event = "result"
	EventError          Event = "error"
	EventPong           Event = "pong"
)

// CandidateQuestion is a presented question without its answer key.
type CandidateQuestion struct {
	ID      string             `json:"id"`
	Text    string             `json:"text"`
	Type    model.QuestionType `json:"type"`
	Points  float64            `json:"points"`
	Options []string           `json:"options,omitempty"`
}

type LayoutResponse struct {
	Event          Event               `json:"event"`
	ExamID         string              `json:"exam_id"`
	Title          string              `json:"title"`
	Settings       model.ExamSettings  `json:"settings"`
	InitialSeconds int                 `json:"initial_seconds"`
	Questions      []CandidateQuestion `json:"questions"`
}

type PhaseResponse struct {
	Event Event         `json:"event"`
	State session.State `json:"state"`
}

type TickResponse struct {
	Event           Event `json:"event"`
	TimeLeftSeconds int   `json:"time_left_seconds"`
}

type WarningResponse struct {
	Event          Event               `json:"event"`
	Kind           model.ViolationKind `json:"kind"`
	Message        string              `json:"message"`
	ViolationCount int                 `json:"violation_count"`
	ExpiresInMs    int64               `json:"expires_in_ms"`
}

type WarningClearedResponse struct {
	Event Event `json:"event"`
}

type SubmittingResponse struct {
	Event  Event              `json:"event"`
	Reason model.SubmitReason `json:"reason"`
}

// ResultResponse carries the graded result. Each answer's choice is mapped
// back to the order the candidate saw.
type ResultResponse struct {
	Event  Event             `json:"event"`
	Result *model.ExamResult `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}

// NewLayoutResponse strips answer keys from the session layout.
func NewLayoutResponse(sess *session.Session) LayoutResponse {
	qs := make([]CandidateQuestion, 0, len(sess.Layout.Questions))
	for _, pq := range sess.Layout.Questions {
		q := pq.Question.ForCandidate()
		qs = append(qs, CandidateQuestion{
			ID:      q.ID.String(),
			Text:    q.Text,
			Type:    q.Type,
			Points:  q.Points,
			Options: q.Options,
		})
	}
	return LayoutResponse{
		Event:          EventLayout,
		ExamID:         sess.Exam.ID.String(),
		Title:          sess.Exam.Title,
		Settings:       sess.Exam.Settings,
		InitialSeconds: sess.Layout.InitialSeconds,
		Questions:      qs,
	}
}

// NewResultResponse copies the result with choices re-expressed in the
// candidate's presented option order.
func NewResultResponse(res *model.ExamResult, layout *session.Layout) ResultResponse {
	out := *res
	out.Answers = make([]model.GradedAnswer, len(res.Answers))
	for i, a := range res.Answers {
		out.Answers[i] = a
		if a.Choice == nil {
			continue
		}
		pq, ok := layout.Find(a.QuestionID.String())
		if !ok || pq.OriginalIndices == nil {
			continue
		}
		presented := pq.OriginalIndices.Presented(*a.Choice)
		out.Answers[i].Choice = &presented
	}
	return ResultResponse{Event: EventResult, Result: &out}
}
