package grading

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoGrader       = errors.New("no essay grader configured")
	ErrMalformedGrade = errors.New("grader returned a malformed grade")
)

// EssayRequest is everything the external grader needs for one essay.
type EssayRequest struct {
	QuestionText  string
	ModelAnswer   string
	StudentAnswer string
	MaxPoints     float64
}

// EssayGrade is the external grader's verdict.
type EssayGrade struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// EssayGrader scores free-text answers against a model answer. It may fail.
type EssayGrader interface {
	GradeEssay(ctx context.Context, req EssayRequest) (EssayGrade, error)
}

// EssayGraderFunc adapts a function to EssayGrader.
type EssayGraderFunc func(ctx context.Context, req EssayRequest) (EssayGrade, error)

func (f EssayGraderFunc) GradeEssay(ctx context.Context, req EssayRequest) (EssayGrade, error) {
	return f(ctx, req)
}

// EssayOutcome is either a usable grade or the reason the fallback applies.
type EssayOutcome struct {
	Grade    EssayGrade
	Err      error
	Duration time.Duration
}

// Fallback reports whether the grade must be replaced by the manual review fallback.
func (o EssayOutcome) Fallback() bool {
	return o.Err != nil
}

// callGrader runs one grader call bounded by timeout. A grader that ignores
// ctx still cannot hold the submission past the deadline.
func callGrader(ctx context.Context, g EssayGrader, req EssayRequest, timeout time.Duration) EssayOutcome {
	start := time.Now()
	if g == nil {
		return EssayOutcome{Err: ErrNoGrader}
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan EssayOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- EssayOutcome{Err: fmt.Errorf("grader panic: %v", r)}
			}
		}()
		grade, err := g.GradeEssay(ctx, req)
		if err != nil {
			done <- EssayOutcome{Err: err}
			return
		}
		done <- validate(grade, req.MaxPoints)
	}()

	var out EssayOutcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = EssayOutcome{Err: fmt.Errorf("grade essay: %w", ctx.Err())}
	}
	out.Duration = time.Since(start)
	return out
}

func validate(grade EssayGrade, maxPoints float64) EssayOutcome {
	if math.IsNaN(grade.Score) || math.IsInf(grade.Score, 0) {
		return EssayOutcome{Err: ErrMalformedGrade}
	}
	grade.Score = Clamp(grade.Score, maxPoints)
	return EssayOutcome{Grade: grade}
}

// Clamp bounds a score to [0, maxPoints].
func Clamp(score, maxPoints float64) float64 {
	if score < 0 {
		return 0
	}
	if score > maxPoints {
		return maxPoints
	}
	return score
}
