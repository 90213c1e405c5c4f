package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
)

// ExamStore reads exam definitions. Implementations return ErrExamNotFound
// when the exam does not exist.
type ExamStore interface {
	FindExamByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// ResultStore persists results. AmendResult replaces the graded answers,
// recomputes TotalScore and returns the updated record.
type ResultStore interface {
	AppendResult(ctx context.Context, res *model.ExamResult) error
	AmendResult(ctx context.Context, resultID uuid.UUID, answers []model.GradedAnswer) (*model.ExamResult, error)
}

// ViolationSink receives integrity signals for auditing.
type ViolationSink interface {
	RecordViolation(ctx context.Context, examID uuid.UUID, studentID string, kind model.ViolationKind, count int) error
}
