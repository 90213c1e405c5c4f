package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/events"
	"github.com/stemsi/exam-portal/internal/grading"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/session"
)

// LiveFeed receives candidate state changes for the staff monitor.
type LiveFeed interface {
	Publish(ctx context.Context, examID uuid.UUID, ev MonitorEvent)
}

// ExamSessionService drives one candidate's attempt from entry to result.
// A *session.Session is owned by a single goroutine; the service itself is
// stateless and safe for concurrent use.
type ExamSessionService struct {
	exams      ExamStore
	results    ResultStore
	pipeline   *grading.Pipeline
	violations ViolationSink
	feed       LiveFeed
	publisher  events.Publisher
	warningTTL time.Duration
	log        zerolog.Logger

	appendBackoff time.Duration
}

const (
	defaultAppendBackoff = 250 * time.Millisecond
	maxAppendBackoff     = 5 * time.Second
)

// NewExamSessionService creates a new ExamSessionService. violations, feed
// and publisher may be nil.
func NewExamSessionService(
	exams ExamStore,
	results ResultStore,
	pipeline *grading.Pipeline,
	violations ViolationSink,
	feed LiveFeed,
	publisher events.Publisher,
	warningTTL time.Duration,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		exams:      exams,
		results:    results,
		pipeline:   pipeline,
		violations: violations,
		feed:       feed,
		publisher:  publisher,
		warningTTL: warningTTL,
		log:        log.With().Str("component", "exam_session_service").Logger(),

		appendBackoff: defaultAppendBackoff,
	}
}

// Overview returns the lobby view of an exam.
func (s *ExamSessionService) Overview(ctx context.Context, examID uuid.UUID) (*model.ExamOverview, error) {
	exam, err := s.exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	ov := exam.Overview()
	return &ov, nil
}

// Start loads the exam snapshot and builds a fresh session. Only active
// exams can be started.
func (s *ExamSessionService) Start(ctx context.Context, examID uuid.UUID, opts ...session.Option) (*session.Session, error) {
	exam, err := s.exams.FindExamByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, ErrExamInactive
	}

	if s.warningTTL > 0 {
		opts = append([]session.Option{session.WithWarningTTL(s.warningTTL)}, opts...)
	}
	return session.New(exam, opts...), nil
}

// Enter admits the candidate. Entry errors leave the session unchanged so the
// client may retry.
func (s *ExamSessionService) Enter(ctx context.Context, sess *session.Session, c session.Candidate, fullscreenActive bool) error {
	if err := sess.Proctor.Enter(c, fullscreenActive); err != nil {
		return err
	}
	s.log.Info().
		Str("exam_id", sess.Exam.ID.String()).
		Str("candidate_id", sess.Proctor.Candidate().ID).
		Str("phase", string(sess.Proctor.Phase())).
		Msg("Candidate entered")
	s.publish(ctx, sess, MonitorJoined)
	return nil
}

// FullscreenResult applies the client's fullscreen outcome. requestErr is
// the client-reported failure text, empty on success.
func (s *ExamSessionService) FullscreenResult(ctx context.Context, sess *session.Session, requestErr string) error {
	var reqErr error
	if requestErr != "" {
		reqErr = errors.New(requestErr)
	}
	if err := sess.Proctor.FullscreenResult(reqErr); err != nil {
		return err
	}
	s.publish(ctx, sess, MonitorProgress)
	return nil
}

// Violation records an integrity signal. The returned warning is only valid
// when recorded is true.
func (s *ExamSessionService) Violation(ctx context.Context, sess *session.Session, kind model.ViolationKind) (session.Warning, bool) {
	var (
		w        session.Warning
		recorded bool
	)
	switch kind {
	case model.ViolationFullscreenExit:
		w, recorded = sess.Proctor.FullscreenExited()
	default:
		w, recorded = sess.Proctor.VisibilityHidden()
	}
	if !recorded {
		return w, false
	}

	metrics.ViolationsTotal.WithLabelValues(string(kind)).Inc()

	candidate := sess.Proctor.Candidate()
	count := sess.Proctor.ViolationCount()
	if s.violations != nil {
		if err := s.violations.RecordViolation(ctx, sess.Exam.ID, candidate.ID, kind, count); err != nil {
			s.log.Warn().Err(err).Str("candidate_id", candidate.ID).Msg("Failed to queue violation")
		}
	}
	s.publish(ctx, sess, MonitorViolation)
	return w, true
}

// Answered notifies the monitor after an answer change.
func (s *ExamSessionService) Answered(ctx context.Context, sess *session.Session) {
	s.publish(ctx, sess, MonitorProgress)
}

// Submit performs a confirmed manual submission.
func (s *ExamSessionService) Submit(sess *session.Session, confirmed bool) error {
	return sess.Proctor.Submit(confirmed)
}

// Finalize grades a submitted session and appends its result. Grading
// happens once per session. When the write fails, the result stays held on
// the session and a later call retries the write; once stored, further calls
// return ErrResultClaimed.
func (s *ExamSessionService) Finalize(ctx context.Context, sess *session.Session) (*model.ExamResult, error) {
	if sess.Proctor.Phase() != session.PhaseSubmitted {
		return nil, ErrNotSubmitted
	}

	candidate := sess.Proctor.Candidate()
	reason := sess.Proctor.SubmitReason()

	res := sess.PendingResult()
	if res == nil {
		if !sess.ClaimResult() {
			return nil, ErrResultClaimed
		}
		graded := s.pipeline.Grade(ctx, sess.Exam, sess.Answers.Canonical())
		res = grading.Compose(sess.Exam, grading.Submission{
			StudentID:      candidate.ID,
			StudentName:    candidate.Name,
			ViolationCount: sess.Proctor.ViolationCount(),
			Reason:         reason,
		}, graded)
		sess.HoldResult(res)
	}

	if err := s.appendWithRetry(ctx, res); err != nil {
		return nil, fmt.Errorf("append result: %w", err)
	}
	sess.ReleaseResult()

	metrics.SubmissionsTotal.WithLabelValues(string(reason)).Inc()

	s.log.Info().
		Str("exam_id", res.ExamID.String()).
		Str("result_id", res.ID.String()).
		Str("candidate_id", res.StudentID).
		Str("reason", string(reason)).
		Float64("total", res.TotalScore).
		Float64("max", res.MaxScore).
		Int("violations", res.ViolationCount).
		Msg("Exam submitted and graded")

	if s.publisher != nil {
		if err := s.publisher.PublishResult(ctx, events.NewResultEvent(events.EventResultSubmitted, res)); err != nil {
			s.log.Warn().Err(err).Str("result_id", res.ID.String()).Msg("Failed to publish result event")
		}
	}

	if s.feed != nil {
		total := res.TotalScore
		lc := s.liveCandidate(sess)
		lc.TotalScore = &total
		s.feed.Publish(ctx, sess.Exam.ID, MonitorEvent{Type: MonitorSubmitted, Candidate: lc})
	}

	return res, nil
}

// appendWithRetry writes res, backing off between failures until the store
// accepts it or ctx ends.
func (s *ExamSessionService) appendWithRetry(ctx context.Context, res *model.ExamResult) error {
	backoff := s.appendBackoff
	for attempt := 1; ; attempt++ {
		err := s.results.AppendResult(ctx, res)
		if err == nil {
			return nil
		}
		s.log.Warn().Err(err).
			Str("result_id", res.ID.String()).
			Int("attempt", attempt).
			Msg("Failed to store result, retrying")

		select {
		case <-ctx.Done():
			return err
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > maxAppendBackoff {
			backoff = maxAppendBackoff
		}
	}
}

// Leave tells the monitor a candidate disconnected before submitting.
func (s *ExamSessionService) Leave(ctx context.Context, sess *session.Session) {
	if sess.Proctor.Phase() == session.PhaseSubmitted || sess.Proctor.Phase() == session.PhaseNotEntered {
		return
	}
	s.publish(ctx, sess, MonitorLeft)
}

func (s *ExamSessionService) publish(ctx context.Context, sess *session.Session, t MonitorEventType) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(ctx, sess.Exam.ID, MonitorEvent{Type: t, Candidate: s.liveCandidate(sess)})
}

func (s *ExamSessionService) liveCandidate(sess *session.Session) LiveCandidate {
	c := sess.Proctor.Candidate()
	return LiveCandidate{
		CandidateID:     c.ID,
		Name:            c.Name,
		Phase:           string(sess.Proctor.Phase()),
		AnsweredCount:   sess.Answers.Len(),
		ViolationCount:  sess.Proctor.ViolationCount(),
		TimeLeftSeconds: sess.Proctor.TimeLeft(),
	}
}
