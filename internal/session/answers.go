package session

import (
	"errors"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
)

var (
	ErrUnknownQuestion = errors.New("question is not part of this session")
	ErrWrongAnswerKind = errors.New("answer kind does not match question type")
)

// AnswerStore holds the candidate's current answers in presented order terms.
// A question with no entry is unanswered, which differs from choice 0.
type AnswerStore struct {
	layout  *Layout
	answers map[uuid.UUID]model.StudentAnswer
}

func NewAnswerStore(layout *Layout) *AnswerStore {
	return &AnswerStore{
		layout:  layout,
		answers: make(map[uuid.UUID]model.StudentAnswer),
	}
}

// SetChoice records a presented option index for a multiple choice question.
func (s *AnswerStore) SetChoice(questionID string, presented int) error {
	q, ok := s.layout.Find(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if !q.IsMultipleChoice() {
		return ErrWrongAnswerKind
	}
	s.answers[q.ID] = model.ChoiceAnswer(q.ID, presented)
	return nil
}

// SetText records an essay answer.
func (s *AnswerStore) SetText(questionID, text string) error {
	q, ok := s.layout.Find(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	if q.IsMultipleChoice() {
		return ErrWrongAnswerKind
	}
	s.answers[q.ID] = model.TextAnswer(q.ID, text)
	return nil
}

// Clear removes an answer so the question counts as unanswered again.
func (s *AnswerStore) Clear(questionID string) error {
	q, ok := s.layout.Find(questionID)
	if !ok {
		return ErrUnknownQuestion
	}
	delete(s.answers, q.ID)
	return nil
}

// Get returns the presented-order answer for a question.
func (s *AnswerStore) Get(questionID uuid.UUID) (model.StudentAnswer, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// Len is the number of answered questions.
func (s *AnswerStore) Len() int {
	return len(s.answers)
}

// Canonical returns the answers with multiple choice indices mapped back to
// authored order, in presented question order. Unanswered questions are omitted.
func (s *AnswerStore) Canonical() []model.StudentAnswer {
	out := make([]model.StudentAnswer, 0, len(s.answers))
	for i := range s.layout.Questions {
		q := &s.layout.Questions[i]
		a, ok := s.answers[q.ID]
		if !ok {
			continue
		}
		if a.Choice != nil {
			a = model.ChoiceAnswer(q.ID, q.CanonicalIndex(*a.Choice))
		}
		out = append(out, a)
	}
	return out
}
