// Package grading turns a candidate's canonical answers into graded answers
// and composes the durable exam result.
package grading

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultGraderTimeout     = 20 * time.Second
	DefaultGraderConcurrency = 4
)

// Pipeline scores every question of an exam. Multiple choice is deterministic;
// essays with a model answer go to the external grader.
type Pipeline struct {
	grader      EssayGrader
	feedback    Feedback
	timeout     time.Duration
	concurrency int
	log         zerolog.Logger
}

// PipelineConfig bounds external grading.
type PipelineConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// NewPipeline creates a Pipeline. grader may be nil, in which case every
// gradable essay falls back to manual review.
func NewPipeline(grader EssayGrader, feedback Feedback, cfg PipelineConfig, log zerolog.Logger) *Pipeline {
	if feedback == nil {
		feedback = ArabicFeedback
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGraderTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultGraderConcurrency
	}
	return &Pipeline{
		grader:      grader,
		feedback:    feedback,
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		log:         log.With().Str("component", "grading_pipeline").Logger(),
	}
}

// Grade returns one graded answer per exam question in authored order.
// It never fails: grader problems degrade to a zero score flagged for review.
func (p *Pipeline) Grade(ctx context.Context, exam *model.Exam, answers []model.StudentAnswer) []model.GradedAnswer {
	byQuestion := make(map[uuid.UUID]model.StudentAnswer, len(answers))
	for _, a := range answers {
		byQuestion[a.QuestionID] = a
	}

	graded := make([]model.GradedAnswer, len(exam.Questions))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i := range exam.Questions {
		q := exam.Questions[i]
		ans, answered := byQuestion[q.ID]
		if !answered {
			ans = model.StudentAnswer{QuestionID: q.ID}
		}

		switch {
		case q.IsMultipleChoice():
			graded[i] = p.gradeChoice(&q, ans)
		case q.HasModelAnswer() && ans.Text != nil && strings.TrimSpace(*ans.Text) != "":
			g.Go(func() error {
				graded[i] = p.gradeEssay(ctx, exam.ID, &q, ans)
				return nil
			})
		default:
			graded[i] = model.GradedAnswer{
				StudentAnswer: ans,
				Score:         0,
				Feedback:      p.feedback.PendingManual(),
				IsAutoGraded:  false,
			}
		}
	}

	_ = g.Wait()
	for i := range graded {
		graded[i].Points = exam.Questions[i].Points
	}
	return graded
}

// gradeChoice scores a canonical choice. A missing answer never matches.
func (p *Pipeline) gradeChoice(q *model.Question, ans model.StudentAnswer) model.GradedAnswer {
	correct := ans.Choice != nil && *ans.Choice == q.CorrectOptionIndex
	out := model.GradedAnswer{
		StudentAnswer: ans,
		IsAutoGraded:  true,
		Feedback:      p.feedback.Incorrect(),
	}
	if correct {
		out.Score = q.Points
		out.Feedback = p.feedback.Correct()
	}
	return out
}

func (p *Pipeline) gradeEssay(ctx context.Context, examID uuid.UUID, q *model.Question, ans model.StudentAnswer) model.GradedAnswer {
	outcome := callGrader(ctx, p.grader, EssayRequest{
		QuestionText:  q.Text,
		ModelAnswer:   q.ModelAnswer,
		StudentAnswer: *ans.Text,
		MaxPoints:     q.Points,
	}, p.timeout)

	metrics.EssayGradingDuration.Observe(outcome.Duration.Seconds())

	if outcome.Fallback() {
		metrics.EssayGradingFallbacks.Inc()
		p.log.Warn().Err(outcome.Err).
			Str("exam_id", examID.String()).
			Str("question_id", q.ID.String()).
			Msg("Essay grading failed, flagged for manual review")
		return model.GradedAnswer{
			StudentAnswer: ans,
			Score:         0,
			Feedback:      p.feedback.GraderFailed(),
			IsAutoGraded:  true,
		}
	}

	return model.GradedAnswer{
		StudentAnswer: ans,
		Score:         outcome.Grade.Score,
		Feedback:      outcome.Grade.Feedback,
		IsAutoGraded:  true,
	}
}
