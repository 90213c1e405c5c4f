package model

import (
	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeEssay          QuestionType = "ESSAY"
)

// Question represents a single exam question.
// CorrectOptionIndex points into Options in authored order.
type Question struct {
	ID                 uuid.UUID    `json:"id"`
	Text               string       `json:"text"`
	Type               QuestionType `json:"type"`
	Points             float64      `json:"points"`
	Options            []string     `json:"options,omitempty"`
	CorrectOptionIndex int          `json:"correct_option_index"`
	ModelAnswer        string       `json:"model_answer,omitempty"`
}

func (q *Question) IsMultipleChoice() bool {
	return q.Type == QuestionTypeMultipleChoice
}

// HasModelAnswer reports whether an essay can be sent to the external grader.
func (q *Question) HasModelAnswer() bool {
	return q.ModelAnswer != ""
}

// ForCandidate returns a copy without the answer key or model answer.
func (q Question) ForCandidate() Question {
	q.CorrectOptionIndex = -1
	q.ModelAnswer = ""
	return q
}

// UpsertQuestionRequest is a single question inside UpsertExamRequest.
type UpsertQuestionRequest struct {
	ID                 *uuid.UUID `json:"id" binding:"omitempty"`
	Text               string     `json:"text" binding:"required,trimmed_min=1,max=4000"`
	Type               string     `json:"type" binding:"required,oneof=MULTIPLE_CHOICE ESSAY"`
	Points             float64    `json:"points" binding:"required,gt=0"`
	Options            []string   `json:"options" binding:"required_if=Type MULTIPLE_CHOICE,omitempty,dive,required"`
	CorrectOptionIndex int        `json:"correct_option_index" binding:"min=0"`
	ModelAnswer        string     `json:"model_answer" binding:"omitempty,max=4000"`
}

// ToQuestion converts the request into a Question, assigning a fresh ID when absent.
func (r UpsertQuestionRequest) ToQuestion() Question {
	id := uuid.New()
	if r.ID != nil {
		id = *r.ID
	}
	return Question{
		ID:                 id,
		Text:               r.Text,
		Type:               QuestionType(r.Type),
		Points:             r.Points,
		Options:            r.Options,
		CorrectOptionIndex: r.CorrectOptionIndex,
		ModelAnswer:        r.ModelAnswer,
	}
}
