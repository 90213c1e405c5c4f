package model

import (
	"time"

	"github.com/google/uuid"
)

// StudentAnswer is a candidate's answer to one question.
// Exactly one of Choice (multiple choice) or Text (essay) is set.
// Unanswered questions have no StudentAnswer at all.
type StudentAnswer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Choice     *int      `json:"choice,omitempty"`
	Text       *string   `json:"text,omitempty"`
}

// ChoiceAnswer builds a multiple choice answer.
func ChoiceAnswer(questionID uuid.UUID, index int) StudentAnswer {
	return StudentAnswer{QuestionID: questionID, Choice: &index}
}

// TextAnswer builds an essay answer.
func TextAnswer(questionID uuid.UUID, text string) StudentAnswer {
	return StudentAnswer{QuestionID: questionID, Text: &text}
}

// GradedAnswer is a StudentAnswer after grading.
// IsAutoGraded is false only for essays awaiting a human grader.
type GradedAnswer struct {
	StudentAnswer
	Score        float64 `json:"score"`
	Points       float64 `json:"points"`
	Feedback     string  `json:"feedback,omitempty"`
	IsAutoGraded bool    `json:"is_auto_graded"`
}

// SubmitReason records how a session ended.
type SubmitReason string

const (
	SubmitManual  SubmitReason = "manual"
	SubmitTimeout SubmitReason = "timeout"
)

// ExamResult is the durable outcome of one submitted session.
type ExamResult struct {
	ID             uuid.UUID      `json:"id"`
	ExamID         uuid.UUID      `json:"exam_id"`
	StudentID      string         `json:"student_id"`
	StudentName    string         `json:"student_name"`
	Answers        []GradedAnswer `json:"answers"`
	TotalScore     float64        `json:"total_score"`
	MaxScore       float64        `json:"max_score"`
	SubmittedAt    time.Time      `json:"submitted_at"`
	ViolationCount int            `json:"violation_count"`
	SubmitReason   SubmitReason   `json:"submit_reason"`
}

// ResultSummary is a result row joined with its exam title, used in listings and exports.
type ResultSummary struct {
	ID             uuid.UUID `json:"id"`
	ExamID         uuid.UUID `json:"exam_id"`
	ExamTitle      string    `json:"exam_title"`
	StudentID      string    `json:"student_id"`
	StudentName    string    `json:"student_name"`
	TotalScore     float64   `json:"total_score"`
	MaxScore       float64   `json:"max_score"`
	SubmittedAt    time.Time `json:"submitted_at"`
	ViolationCount int       `json:"violation_count"`
}

// GradeAnswerRequest is one edited answer inside RegradeRequest.
type GradeAnswerRequest struct {
	QuestionID uuid.UUID `json:"question_id" binding:"required"`
	Score      float64   `json:"score" binding:"min=0"`
	Feedback   *string   `json:"feedback" binding:"omitempty,max=2000"`
}

// RegradeRequest is the payload for manually re-grading a result.
type RegradeRequest struct {
	Answers []GradeAnswerRequest `json:"answers" binding:"required,min=1,dive"`
}

// ViolationKind enumerates integrity signals observed during a session.
type ViolationKind string

const (
	ViolationTabHidden      ViolationKind = "tab_hidden"
	ViolationFullscreenExit ViolationKind = "fullscreen_exit"
)
