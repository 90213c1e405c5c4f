package session

import (
	"github.com/stemsi/exam-portal/internal/model"
)

// Permutation maps a presented option position to its canonical index:
// p[presented] = canonical.
type Permutation []int

// Valid reports whether p is a permutation of [0, n).
func (p Permutation) Valid(n int) bool {
	if len(p) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range p {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

// Canonical maps a presented index back to the authored index.
// Out of range input yields -1, which never matches a valid option.
func (p Permutation) Canonical(presented int) int {
	if presented < 0 || presented >= len(p) {
		return -1
	}
	return p[presented]
}

// Presented maps a canonical index to where the candidate sees it.
func (p Permutation) Presented(canonical int) int {
	for i, v := range p {
		if v == canonical {
			return i
		}
	}
	return -1
}

// PresentedQuestion is a question as one candidate sees it.
// OriginalIndices is nil when the options were not shuffled or the question is an essay.
type PresentedQuestion struct {
	model.Question
	OriginalIndices Permutation `json:"-"`
}

// CanonicalIndex reverses the option shuffle for a presented answer.
func (q *PresentedQuestion) CanonicalIndex(presented int) int {
	if q.OriginalIndices == nil {
		if presented < 0 || presented >= len(q.Options) {
			return -1
		}
		return presented
	}
	return q.OriginalIndices.Canonical(presented)
}

// Layout is the per-session presentation of an exam.
type Layout struct {
	Questions      []PresentedQuestion
	InitialSeconds int
}

// Find returns the presented question with the given ID.
func (l *Layout) Find(id string) (*PresentedQuestion, bool) {
	for i := range l.Questions {
		if l.Questions[i].ID.String() == id {
			return &l.Questions[i], true
		}
	}
	return nil, false
}

// Build derives a fresh randomized layout from the exam definition.
func Build(exam *model.Exam) *Layout {
	return buildWith(exam, Perm)
}

func buildWith(exam *model.Exam, perm func(n int) Permutation) *Layout {
	order := make([]int, len(exam.Questions))
	if exam.Settings.RandomizeQuestions {
		order = perm(len(exam.Questions))
	} else {
		for i := range order {
			order[i] = i
		}
	}

	questions := make([]PresentedQuestion, 0, len(order))
	for _, idx := range order {
		q := exam.Questions[idx]
		pq := PresentedQuestion{Question: q}

		if exam.Settings.RandomizeOptions && q.IsMultipleChoice() {
			p := perm(len(q.Options))
			opts := make([]string, len(p))
			for presented, canonical := range p {
				opts[presented] = q.Options[canonical]
			}
			pq.Options = opts
			pq.OriginalIndices = p
		}
		questions = append(questions, pq)
	}

	layout := &Layout{Questions: questions}
	if exam.Settings.EnableTimer {
		layout.InitialSeconds = exam.DurationMinutes * 60
	}
	return layout
}
