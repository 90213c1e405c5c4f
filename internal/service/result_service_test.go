package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/i18n"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResultQueries serves reads from the fake store.
type fakeResultQueries struct {
	store *fakeResultStore
}

func (f *fakeResultQueries) GetByID(_ context.Context, id uuid.UUID) (*model.ExamResult, error) {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	res, ok := f.store.results[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *res
	return &cp, nil
}

func (f *fakeResultQueries) ListByExam(context.Context, uuid.UUID, int, int) ([]model.ResultSummary, int, error) {
	return nil, 0, nil
}

func (f *fakeResultQueries) ListAllByExam(context.Context, uuid.UUID) ([]model.ResultSummary, error) {
	return []model.ResultSummary{{ID: uuid.New(), StudentName: "Ali", TotalScore: 4, MaxScore: 5}}, nil
}

func (f *fakeResultQueries) ListByStudent(context.Context, string, int, int) ([]model.ResultSummary, int, error) {
	return nil, 0, nil
}

func gradedExam() (*model.Exam, *model.ExamResult) {
	mcID, essayID := uuid.New(), uuid.New()
	exam := &model.Exam{
		ID: uuid.New(),
		Questions: []model.Question{
			{ID: mcID, Type: model.QuestionTypeMultipleChoice, Points: 5, Options: []string{"a", "b"}},
			{ID: essayID, Type: model.QuestionTypeEssay, Points: 5},
		},
	}
	res := &model.ExamResult{
		ID:     uuid.New(),
		ExamID: exam.ID,
		Answers: []model.GradedAnswer{
			{StudentAnswer: model.ChoiceAnswer(mcID, 0), Score: 5, Points: 5, IsAutoGraded: true},
			{StudentAnswer: model.TextAnswer(essayID, "essay"), Score: 3, Points: 5, Feedback: "ok", IsAutoGraded: false},
		},
		TotalScore: 8,
		MaxScore:   10,
	}
	return exam, res
}

func newResultFixture(t *testing.T) (*ResultService, *model.Exam, *model.ExamResult, *fakeResultStore) {
	t.Helper()
	exam, res := gradedExam()
	store := newFakeResultStore()
	require.NoError(t, store.AppendResult(context.Background(), res))

	catalog, err := i18n.New("en")
	require.NoError(t, err)

	svc := NewResultService(&fakeResultQueries{store: store}, store, catalog, nil, nil, zerolog.Nop())
	return svc, exam, res, store
}

func TestRegrade_RaisesTotalByDelta(t *testing.T) {
	svc, exam, res, _ := newResultFixture(t)
	essayID := exam.Questions[1].ID

	updated, err := svc.Regrade(context.Background(), res.ID, &model.RegradeRequest{
		Answers: []model.GradeAnswerRequest{{QuestionID: essayID, Score: 5, Feedback: ptr("excellent")}},
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, updated.TotalScore)
	assert.Equal(t, 10.0, updated.MaxScore)
	assert.Equal(t, "excellent", updated.Answers[1].Feedback)
	assert.False(t, updated.Answers[1].IsAutoGraded, "manual scoring keeps the grading flag")
	assert.Equal(t, 5.0, updated.Answers[0].Score)
}

func TestRegrade_Errors(t *testing.T) {
	svc, exam, res, store := newResultFixture(t)

	_, err := svc.Regrade(context.Background(), uuid.New(), &model.RegradeRequest{})
	assert.ErrorIs(t, err, ErrResultNotFound)

	_, err = svc.Regrade(context.Background(), res.ID, &model.RegradeRequest{
		Answers: []model.GradeAnswerRequest{{QuestionID: exam.Questions[1].ID, Score: 5.5}},
	})
	assert.ErrorIs(t, err, ErrScoreOutOfRange)

	_, err = svc.Regrade(context.Background(), res.ID, &model.RegradeRequest{
		Answers: []model.GradeAnswerRequest{{QuestionID: uuid.New(), Score: 1}},
	})
	assert.ErrorIs(t, err, ErrQuestionNotInExam)

	stored, _ := (&fakeResultQueries{store: store}).GetByID(context.Background(), res.ID)
	assert.Equal(t, 8.0, stored.TotalScore, "failed regrade leaves the result untouched")
}

func TestRegrade_UsesPointsRecordedAtGrading(t *testing.T) {
	svc, exam, res, _ := newResultFixture(t)
	essayID := exam.Questions[1].ID

	// The exam is edited after the result was produced.
	exam.Questions[1].Points = 2
	exam.Questions = exam.Questions[:1]

	updated, err := svc.Regrade(context.Background(), res.ID, &model.RegradeRequest{
		Answers: []model.GradeAnswerRequest{{QuestionID: essayID, Score: 4.5}},
	})
	require.NoError(t, err)
	assert.Equal(t, 9.5, updated.TotalScore)
}

func TestApplyGrades_DoesNotMutateInput(t *testing.T) {
	_, res := gradedExam()
	before := res.Answers[1]

	out, err := applyGrades(res.Answers, []model.GradeAnswerRequest{
		{QuestionID: res.Answers[1].QuestionID, Score: 0},
	})
	require.NoError(t, err)

	assert.Equal(t, before, res.Answers[1])
	assert.Zero(t, out[1].Score)
	assert.Equal(t, "ok", out[1].Feedback, "omitted feedback keeps the old text")
	assert.False(t, out[1].IsAutoGraded)
	assert.True(t, out[0].IsAutoGraded)
}

func TestApplyGrades_Feedback(t *testing.T) {
	_, res := gradedExam()
	essayID := res.Answers[1].QuestionID

	out, err := applyGrades(res.Answers, []model.GradeAnswerRequest{{QuestionID: essayID, Score: 4, Feedback: ptr("")}})
	require.NoError(t, err)
	assert.Empty(t, out[1].Feedback)

	out, err = applyGrades(res.Answers, []model.GradeAnswerRequest{{QuestionID: essayID, Score: 4, Feedback: ptr("clear argument")}})
	require.NoError(t, err)
	assert.Equal(t, "clear argument", out[1].Feedback)
}

func TestApplyGrades_BoundaryScores(t *testing.T) {
	_, res := gradedExam()
	essayID := res.Answers[1].QuestionID

	_, err := applyGrades(res.Answers, []model.GradeAnswerRequest{{QuestionID: essayID, Score: 5}})
	assert.NoError(t, err)
	_, err = applyGrades(res.Answers, []model.GradeAnswerRequest{{QuestionID: essayID, Score: -0.5}})
	assert.ErrorIs(t, err, ErrScoreOutOfRange)
	_, err = applyGrades(res.Answers, []model.GradeAnswerRequest{{QuestionID: essayID, Score: 5.01}})
	assert.ErrorIs(t, err, ErrScoreOutOfRange)
}

func ptr(s string) *string { return &s }

func TestExport_ProducesWorkbook(t *testing.T) {
	svc, exam, _, _ := newResultFixture(t)

	data, name, err := svc.Export(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.Contains(t, name, exam.ID.String())
	assert.Equal(t, []byte("PK"), data[:2])
}
