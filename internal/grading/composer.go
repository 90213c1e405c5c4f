package grading

import (
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
)

// Submission carries the session facts the composer needs.
type Submission struct {
	StudentID      string
	StudentName    string
	ViolationCount int
	Reason         model.SubmitReason
}

// Compose builds the result record. MaxScore is taken from the exam snapshot
// and never recomputed afterwards.
func Compose(exam *model.Exam, sub Submission, answers []model.GradedAnswer) *model.ExamResult {
	return &model.ExamResult{
		ID:             uuid.New(),
		ExamID:         exam.ID,
		StudentID:      sub.StudentID,
		StudentName:    sub.StudentName,
		Answers:        answers,
		TotalScore:     TotalScore(answers),
		MaxScore:       exam.MaxScore(),
		SubmittedAt:    time.Now().UTC(),
		ViolationCount: sub.ViolationCount,
		SubmitReason:   sub.Reason,
	}
}

// Regrade replaces the graded answers and recomputes TotalScore only.
func Regrade(result *model.ExamResult, answers []model.GradedAnswer) {
	result.Answers = answers
	result.TotalScore = TotalScore(answers)
}

func TotalScore(answers []model.GradedAnswer) float64 {
	var total float64
	for _, a := range answers {
		total += a.Score
	}
	return total
}
