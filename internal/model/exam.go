package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamSettings holds the per-exam delivery flags.
type ExamSettings struct {
	RandomizeQuestions bool `json:"randomize_questions"`
	RandomizeOptions   bool `json:"randomize_options"`
	RequireFullscreen  bool `json:"require_fullscreen"`
	EnableTimer        bool `json:"enable_timer"`
}

// Exam represents an exam definition. A session reads it once at start.
type Exam struct {
	ID              uuid.UUID    `json:"id"`
	CourseID        *uuid.UUID   `json:"course_id,omitempty"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	DurationMinutes int          `json:"duration_minutes"`
	Questions       []Question   `json:"questions"`
	Settings        ExamSettings `json:"settings"`
	IsActive        bool         `json:"is_active"`
	CreatedBy       string       `json:"created_by"`
	CreatedByName   string       `json:"created_by_name"`
	Logs            []ExamLog    `json:"logs,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// MaxScore is the sum of question points.
func (e *Exam) MaxScore() float64 {
	var total float64
	for _, q := range e.Questions {
		total += q.Points
	}
	return total
}

// QuestionByID returns the question with the given ID.
func (e *Exam) QuestionByID(id uuid.UUID) (*Question, bool) {
	for i := range e.Questions {
		if e.Questions[i].ID == id {
			return &e.Questions[i], true
		}
	}
	return nil, false
}

// ExamOverview is the public view of an exam shown before entry (no answers).
type ExamOverview struct {
	ID              uuid.UUID    `json:"id"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	DurationMinutes int          `json:"duration_minutes"`
	QuestionCount   int          `json:"question_count"`
	MaxScore        float64      `json:"max_score"`
	Settings        ExamSettings `json:"settings"`
	IsActive        bool         `json:"is_active"`
}

// Overview strips the exam down to what a candidate may see before entering.
func (e *Exam) Overview() ExamOverview {
	return ExamOverview{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		DurationMinutes: e.DurationMinutes,
		QuestionCount:   len(e.Questions),
		MaxScore:        e.MaxScore(),
		Settings:        e.Settings,
		IsActive:        e.IsActive,
	}
}

// ExamLogAction enumerates audit log actions.
type ExamLogAction string

const (
	ExamLogCreated      ExamLogAction = "CREATED"
	ExamLogUpdated      ExamLogAction = "UPDATED"
	ExamLogStatusChange ExamLogAction = "STATUS_CHANGE"
)

// ExamLog is an append-only audit entry for an exam.
type ExamLog struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	Action      ExamLogAction `json:"action"`
	Description string        `json:"description"`
	PerformedBy string        `json:"performed_by"`
	Timestamp   time.Time     `json:"timestamp"`
}

// UpsertExamRequest is the payload for creating or replacing an exam.
type UpsertExamRequest struct {
	CourseID        *uuid.UUID              `json:"course_id" binding:"omitempty"`
	Title           string                  `json:"title" binding:"required,trimmed_min=3,max=255"`
	Description     string                  `json:"description" binding:"omitempty,max=2000"`
	DurationMinutes int                     `json:"duration_minutes" binding:"min=0,max=480"`
	Settings        ExamSettings            `json:"settings"`
	Questions       []UpsertQuestionRequest `json:"questions" binding:"dive"`
}
