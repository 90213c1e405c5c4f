// Package session implements a single candidate's exam attempt: randomized
// layout, answers, countdown and integrity tracking. It has no I/O; callers
// feed it client signals and a one-second tick.
package session

import (
	"time"

	"github.com/stemsi/exam-portal/internal/model"
)

// Session bundles the per-attempt state built from one exam snapshot.
type Session struct {
	Exam    *model.Exam
	Layout  *Layout
	Answers *AnswerStore
	Proctor *Proctor

	resultClaimed bool
	pending       *model.ExamResult
}

// ClaimResult reports true exactly once, after the proctor has reached
// PhaseSubmitted. The caller that wins the claim produces the result.
func (s *Session) ClaimResult() bool {
	if s.resultClaimed || s.Proctor.Phase() != PhaseSubmitted {
		return false
	}
	s.resultClaimed = true
	return true
}

// HoldResult keeps a produced result until it has been stored, so a failed
// write can be retried without grading again.
func (s *Session) HoldResult(res *model.ExamResult) { s.pending = res }

// PendingResult returns the held result, or nil once it has been stored.
func (s *Session) PendingResult() *model.ExamResult { return s.pending }

// ReleaseResult drops the held result after a successful write.
func (s *Session) ReleaseResult() { s.pending = nil }

type Option func(*Session)

// WithClock overrides the time source used for warnings.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.Proctor.now = now }
}

// WithWarningTTL overrides how long a warning stays visible.
func WithWarningTTL(ttl time.Duration) Option {
	return func(s *Session) {
		if ttl > 0 {
			s.Proctor.warningTTL = ttl
		}
	}
}

// WithPermuter replaces the random permutation source used by the builder.
func WithPermuter(perm func(n int) Permutation) Option {
	return func(s *Session) {
		s.Layout = buildWith(s.Exam, perm)
		s.Answers = NewAnswerStore(s.Layout)
		s.Proctor.timeLeft = s.Layout.InitialSeconds
	}
}

// New builds a fresh session for the exam.
func New(exam *model.Exam, opts ...Option) *Session {
	layout := Build(exam)
	s := &Session{
		Exam:    exam,
		Layout:  layout,
		Answers: NewAnswerStore(layout),
		Proctor: NewProctor(exam.Settings, layout.InitialSeconds),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
