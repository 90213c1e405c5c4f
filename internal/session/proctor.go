package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stemsi/exam-portal/internal/model"
)

// Phase is the candidate's position in the session lifecycle.
// Transitions only move forward.
type Phase string

const (
	PhaseNotEntered         Phase = "not_entered"
	PhaseAwaitingFullscreen Phase = "awaiting_fullscreen"
	PhaseInProgress         Phase = "in_progress"
	PhaseSubmitted          Phase = "submitted"
)

const (
	MinGuestNameLength = 3
	DefaultWarningTTL  = 4 * time.Second
)

var (
	ErrGuestNameTooShort = errors.New("guest name must be at least 3 characters")
	ErrFullscreenDenied  = errors.New("fullscreen request was denied")
	ErrAlreadyEntered    = errors.New("session already entered")
	ErrNotInProgress     = errors.New("session is not in progress")
	ErrAlreadySubmitted  = errors.New("session already submitted")
	ErrNotConfirmed      = errors.New("manual submission requires confirmation")
	ErrInvalidTransition = errors.New("invalid session transition")
)

// Candidate identifies who is taking the exam. Guests are not Authenticated
// and must supply a name.
type Candidate struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Authenticated bool   `json:"authenticated"`
}

// Warning is a transient, non-blocking integrity notice.
type Warning struct {
	Kind      model.ViolationKind `json:"kind"`
	RaisedAt  time.Time           `json:"raised_at"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// State is a read-only snapshot of the controller.
type State struct {
	Phase           Phase `json:"phase"`
	TimeLeftSeconds int   `json:"time_left_seconds"`
	ViolationCount  int   `json:"violation_count"`
	HasStarted      bool  `json:"has_started"`
	IsSubmitting    bool  `json:"is_submitting"`
	TimerEnabled    bool  `json:"timer_enabled"`
}

// Proctor owns the countdown, the integrity counter and the entry state machine.
// It is not safe for concurrent use; one goroutine drives a session.
type Proctor struct {
	settings   model.ExamSettings
	phase      Phase
	timeLeft   int
	violations int
	candidate  Candidate
	reason     model.SubmitReason
	warning    *Warning
	warningTTL time.Duration
	now        func() time.Time
}

func NewProctor(settings model.ExamSettings, initialSeconds int) *Proctor {
	return &Proctor{
		settings:   settings,
		phase:      PhaseNotEntered,
		timeLeft:   initialSeconds,
		warningTTL: DefaultWarningTTL,
		now:        time.Now,
	}
}

// Enter checks entry preconditions. Guests need a name of at least
// MinGuestNameLength trimmed characters.
func (p *Proctor) Enter(c Candidate, fullscreenActive bool) error {
	if p.phase != PhaseNotEntered {
		return ErrAlreadyEntered
	}

	if !c.Authenticated {
		name := strings.TrimSpace(c.Name)
		if utf8.RuneCountInString(name) < MinGuestNameLength {
			return ErrGuestNameTooShort
		}
		c.Name = name
	}
	p.candidate = c

	if p.settings.RequireFullscreen && !fullscreenActive {
		p.phase = PhaseAwaitingFullscreen
		return nil
	}
	p.phase = PhaseInProgress
	return nil
}

// FullscreenResult reports the outcome of the client's fullscreen request.
// A failure keeps the candidate waiting.
func (p *Proctor) FullscreenResult(requestErr error) error {
	if p.phase != PhaseAwaitingFullscreen {
		return ErrInvalidTransition
	}
	if requestErr != nil {
		return fmt.Errorf("%w: %v", ErrFullscreenDenied, requestErr)
	}
	p.phase = PhaseInProgress
	return nil
}

// Tick advances the countdown by one second. It returns true when this tick
// exhausted the timer, in which case the session is already Submitted.
func (p *Proctor) Tick() bool {
	if p.phase != PhaseInProgress || !p.settings.EnableTimer {
		return false
	}
	p.timeLeft--
	if p.timeLeft > 0 {
		return false
	}
	p.timeLeft = 0
	return p.BeginSubmit(model.SubmitTimeout)
}

// VisibilityHidden records the viewing surface becoming hidden.
func (p *Proctor) VisibilityHidden() (Warning, bool) {
	return p.violation(model.ViolationTabHidden)
}

// FullscreenExited records leaving fullscreen. It only counts when the exam
// requires fullscreen.
func (p *Proctor) FullscreenExited() (Warning, bool) {
	if !p.settings.RequireFullscreen {
		return Warning{}, false
	}
	return p.violation(model.ViolationFullscreenExit)
}

func (p *Proctor) violation(kind model.ViolationKind) (Warning, bool) {
	if p.phase != PhaseInProgress {
		return Warning{}, false
	}
	p.violations++
	now := p.now()
	w := Warning{Kind: kind, RaisedAt: now, ExpiresAt: now.Add(p.warningTTL)}
	p.warning = &w
	return w, true
}

// ActiveWarning returns the current warning if it has not yet expired.
func (p *Proctor) ActiveWarning() (Warning, bool) {
	if p.warning == nil || !p.now().Before(p.warning.ExpiresAt) {
		return Warning{}, false
	}
	return *p.warning, true
}

// DismissExpired clears an expired warning and reports whether it did.
func (p *Proctor) DismissExpired() bool {
	if p.warning == nil || p.now().Before(p.warning.ExpiresAt) {
		return false
	}
	p.warning = nil
	return true
}

// Submit performs the manual submission transition. Manual submission must be
// confirmed; only the first successful transition returns nil.
func (p *Proctor) Submit(confirmed bool) error {
	switch p.phase {
	case PhaseSubmitted:
		return ErrAlreadySubmitted
	case PhaseInProgress:
	default:
		return ErrNotInProgress
	}
	if !confirmed {
		return ErrNotConfirmed
	}
	p.BeginSubmit(model.SubmitManual)
	return nil
}

// BeginSubmit moves an in-progress session to Submitted. Only the first call
// succeeds; the reason it records is final.
func (p *Proctor) BeginSubmit(reason model.SubmitReason) bool {
	if p.phase != PhaseInProgress {
		return false
	}
	p.phase = PhaseSubmitted
	p.reason = reason
	return true
}

func (p *Proctor) Phase() Phase                     { return p.phase }
func (p *Proctor) Candidate() Candidate             { return p.candidate }
func (p *Proctor) ViolationCount() int              { return p.violations }
func (p *Proctor) TimeLeft() int                    { return p.timeLeft }
func (p *Proctor) SubmitReason() model.SubmitReason { return p.reason }

func (p *Proctor) State() State {
	return State{
		Phase:           p.phase,
		TimeLeftSeconds: p.timeLeft,
		ViolationCount:  p.violations,
		HasStarted:      p.phase == PhaseInProgress || p.phase == PhaseSubmitted,
		IsSubmitting:    p.phase == PhaseSubmitted,
		TimerEnabled:    p.settings.EnableTimer,
	}
}
