package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reversePerm(n int) Permutation {
	p := make(Permutation, n)
	for i := range p {
		p[i] = n - 1 - i
	}
	return p
}

func sampleExam(settings model.ExamSettings) *model.Exam {
	return &model.Exam{
		ID:              uuid.New(),
		Title:           "Fractions",
		DurationMinutes: 1,
		IsActive:        true,
		Settings:        settings,
		Questions: []model.Question{
			{ID: uuid.New(), Text: "1/2 + 1/2", Type: model.QuestionTypeMultipleChoice, Points: 5,
				Options: []string{"0", "1/2", "1"}, CorrectOptionIndex: 2},
			{ID: uuid.New(), Text: "Explain halves", Type: model.QuestionTypeEssay, Points: 5,
				ModelAnswer: "Two equal parts"},
		},
	}
}

func TestShuffle_DoesNotMutateInput(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7, 8}
	orig := append([]int(nil), in...)

	out := Shuffle(in)

	assert.Equal(t, orig, in)
	assert.ElementsMatch(t, orig, out)
	assert.Len(t, out, len(in))
}

func TestShuffle_Empty(t *testing.T) {
	assert.Empty(t, Shuffle([]string{}))
}

func TestPerm_IsPermutation(t *testing.T) {
	for n := 0; n < 10; n++ {
		assert.True(t, Perm(n).Valid(n), "n=%d", n)
	}
}

func TestPermutation_RoundTrip(t *testing.T) {
	p := Permutation{2, 0, 1}
	for canonical := 0; canonical < 3; canonical++ {
		assert.Equal(t, canonical, p.Canonical(p.Presented(canonical)))
	}
	assert.Equal(t, -1, p.Canonical(3))
	assert.Equal(t, -1, p.Canonical(-1))
	assert.Equal(t, -1, p.Presented(7))
}

func TestPermutation_Valid(t *testing.T) {
	assert.True(t, Permutation{1, 0}.Valid(2))
	assert.False(t, Permutation{0, 0}.Valid(2))
	assert.False(t, Permutation{0, 2}.Valid(2))
	assert.False(t, Permutation{0}.Valid(2))
}

func TestBuild_NoRandomization(t *testing.T) {
	exam := sampleExam(model.ExamSettings{})
	layout := Build(exam)

	require.Len(t, layout.Questions, 2)
	assert.Equal(t, exam.Questions[0].ID, layout.Questions[0].ID)
	assert.Nil(t, layout.Questions[0].OriginalIndices)
	assert.Equal(t, exam.Questions[0].Options, layout.Questions[0].Options)
	assert.Zero(t, layout.InitialSeconds)
}

func TestBuild_DoesNotMutateExam(t *testing.T) {
	exam := sampleExam(model.ExamSettings{RandomizeQuestions: true, RandomizeOptions: true})
	firstID := exam.Questions[0].ID
	opts := append([]string(nil), exam.Questions[0].Options...)

	for i := 0; i < 20; i++ {
		Build(exam)
	}

	assert.Equal(t, firstID, exam.Questions[0].ID)
	assert.Equal(t, opts, exam.Questions[0].Options)
}

func TestBuild_OptionsFollowPermutation(t *testing.T) {
	exam := sampleExam(model.ExamSettings{RandomizeQuestions: true, RandomizeOptions: true, EnableTimer: true})
	sess := New(exam, WithPermuter(reversePerm))

	require.Len(t, sess.Layout.Questions, 2)
	// Reversed question order puts the essay first.
	assert.Equal(t, exam.Questions[1].ID, sess.Layout.Questions[0].ID)
	assert.Nil(t, sess.Layout.Questions[0].OriginalIndices)

	mc := sess.Layout.Questions[1]
	assert.Equal(t, []string{"1", "1/2", "0"}, mc.Options)
	assert.Equal(t, Permutation{2, 1, 0}, mc.OriginalIndices)
	assert.Equal(t, 60, sess.Layout.InitialSeconds)
	assert.Equal(t, 60, sess.Proctor.TimeLeft())
}

func TestAnswerStore_CanonicalMapsPresentedChoice(t *testing.T) {
	exam := sampleExam(model.ExamSettings{RandomizeOptions: true})
	sess := New(exam, WithPermuter(reversePerm))
	mcID := exam.Questions[0].ID.String()

	// Canonical option 2 is shown first.
	require.NoError(t, sess.Answers.SetChoice(mcID, 0))

	got := sess.Answers.Canonical()
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Choice)
	assert.Equal(t, 2, *got[0].Choice)
}

func TestAnswerStore_Errors(t *testing.T) {
	exam := sampleExam(model.ExamSettings{})
	sess := New(exam)
	mcID := exam.Questions[0].ID.String()
	essayID := exam.Questions[1].ID.String()

	assert.ErrorIs(t, sess.Answers.SetChoice(uuid.NewString(), 0), ErrUnknownQuestion)
	assert.ErrorIs(t, sess.Answers.SetChoice(essayID, 0), ErrWrongAnswerKind)
	assert.ErrorIs(t, sess.Answers.SetText(mcID, "x"), ErrWrongAnswerKind)
	assert.ErrorIs(t, sess.Answers.Clear("nope"), ErrUnknownQuestion)
}

func TestAnswerStore_ClearMakesUnanswered(t *testing.T) {
	exam := sampleExam(model.ExamSettings{})
	sess := New(exam)
	mcID := exam.Questions[0].ID.String()

	require.NoError(t, sess.Answers.SetChoice(mcID, 0))
	assert.Equal(t, 1, sess.Answers.Len())

	require.NoError(t, sess.Answers.Clear(mcID))
	assert.Equal(t, 0, sess.Answers.Len())
	assert.Empty(t, sess.Answers.Canonical())
}

func TestAnswerStore_OutOfRangeChoiceNeverMatches(t *testing.T) {
	exam := sampleExam(model.ExamSettings{})
	sess := New(exam)

	require.NoError(t, sess.Answers.SetChoice(exam.Questions[0].ID.String(), 9))
	got := sess.Answers.Canonical()
	require.Len(t, got, 1)
	assert.Equal(t, -1, *got[0].Choice)
}

func TestProctor_GuestNameRules(t *testing.T) {
	tests := []struct {
		name    string
		guest   string
		wantErr error
	}{
		{"too short", "ab", ErrGuestNameTooShort},
		{"padded short", "  ab  ", ErrGuestNameTooShort},
		{"empty", "", ErrGuestNameTooShort},
		{"exact", "abc", nil},
		{"multibyte", "علي", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProctor(model.ExamSettings{}, 0)
			err := p.Enter(Candidate{ID: "guest-1", Name: tt.guest}, false)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, PhaseNotEntered, p.Phase())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PhaseInProgress, p.Phase())
		})
	}
}

func TestProctor_AuthenticatedSkipsNameCheck(t *testing.T) {
	p := NewProctor(model.ExamSettings{}, 0)
	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	assert.Equal(t, PhaseInProgress, p.Phase())
	assert.ErrorIs(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false), ErrAlreadyEntered)
}

func TestProctor_FullscreenFlow(t *testing.T) {
	p := NewProctor(model.ExamSettings{RequireFullscreen: true}, 0)

	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	assert.Equal(t, PhaseAwaitingFullscreen, p.Phase())

	err := p.FullscreenResult(assert.AnError)
	assert.ErrorIs(t, err, ErrFullscreenDenied)
	assert.Equal(t, PhaseAwaitingFullscreen, p.Phase())

	require.NoError(t, p.FullscreenResult(nil))
	assert.Equal(t, PhaseInProgress, p.Phase())
	assert.ErrorIs(t, p.FullscreenResult(nil), ErrInvalidTransition)
}

func TestProctor_FullscreenAlreadyActive(t *testing.T) {
	p := NewProctor(model.ExamSettings{RequireFullscreen: true}, 0)
	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, true))
	assert.Equal(t, PhaseInProgress, p.Phase())
}

func TestProctor_TimerExpiresAfterDuration(t *testing.T) {
	p := NewProctor(model.ExamSettings{EnableTimer: true}, 60)
	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))

	for i := 0; i < 59; i++ {
		require.False(t, p.Tick(), "tick %d", i+1)
	}
	assert.Equal(t, 1, p.TimeLeft())

	assert.True(t, p.Tick())
	assert.Equal(t, 0, p.TimeLeft())
	assert.Equal(t, PhaseSubmitted, p.Phase())
	assert.Equal(t, model.SubmitTimeout, p.SubmitReason())

	assert.False(t, p.Tick())
	assert.ErrorIs(t, p.Submit(true), ErrAlreadySubmitted)
	assert.Equal(t, model.SubmitTimeout, p.SubmitReason())
}

func TestProctor_TickIgnoredWithoutTimer(t *testing.T) {
	p := NewProctor(model.ExamSettings{}, 60)
	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	assert.False(t, p.Tick())
	assert.Equal(t, 60, p.TimeLeft())
}

func TestProctor_TickIgnoredBeforeEntry(t *testing.T) {
	p := NewProctor(model.ExamSettings{EnableTimer: true}, 60)
	assert.False(t, p.Tick())
	assert.Equal(t, 60, p.TimeLeft())
}

func TestProctor_ManualSubmit(t *testing.T) {
	p := NewProctor(model.ExamSettings{}, 0)
	assert.ErrorIs(t, p.Submit(true), ErrNotInProgress)

	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	assert.ErrorIs(t, p.Submit(false), ErrNotConfirmed)
	assert.Equal(t, PhaseInProgress, p.Phase())

	require.NoError(t, p.Submit(true))
	assert.Equal(t, model.SubmitManual, p.SubmitReason())
	assert.ErrorIs(t, p.Submit(true), ErrAlreadySubmitted)
}

func TestProctor_BeginSubmitOnce(t *testing.T) {
	p := NewProctor(model.ExamSettings{}, 0)
	assert.False(t, p.BeginSubmit(model.SubmitManual))

	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	assert.True(t, p.BeginSubmit(model.SubmitTimeout))
	assert.False(t, p.BeginSubmit(model.SubmitManual))
	assert.Equal(t, model.SubmitTimeout, p.SubmitReason())
}

func TestProctor_ViolationsCount(t *testing.T) {
	p := NewProctor(model.ExamSettings{RequireFullscreen: true}, 0)

	_, recorded := p.VisibilityHidden()
	assert.False(t, recorded, "violations before entry are ignored")

	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, true))

	p.VisibilityHidden()
	p.VisibilityHidden()
	_, recorded = p.FullscreenExited()
	assert.True(t, recorded)
	assert.Equal(t, 3, p.ViolationCount())

	require.NoError(t, p.Submit(true))
	_, recorded = p.VisibilityHidden()
	assert.False(t, recorded)
	assert.Equal(t, 3, p.ViolationCount())
}

func TestProctor_FullscreenExitIgnoredWhenNotRequired(t *testing.T) {
	p := NewProctor(model.ExamSettings{}, 0)
	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))

	_, recorded := p.FullscreenExited()
	assert.False(t, recorded)
	assert.Zero(t, p.ViolationCount())
}

func TestProctor_WarningExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	exam := sampleExam(model.ExamSettings{})
	sess := New(exam, WithClock(func() time.Time { return now }), WithWarningTTL(4*time.Second))
	p := sess.Proctor
	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))

	w, recorded := p.VisibilityHidden()
	require.True(t, recorded)
	assert.Equal(t, model.ViolationTabHidden, w.Kind)
	assert.Equal(t, now.Add(4*time.Second), w.ExpiresAt)

	now = now.Add(3 * time.Second)
	_, active := p.ActiveWarning()
	assert.True(t, active)
	assert.False(t, p.DismissExpired())

	now = now.Add(time.Second)
	_, active = p.ActiveWarning()
	assert.False(t, active)
	assert.True(t, p.DismissExpired())
	assert.False(t, p.DismissExpired())
}

func TestProctor_State(t *testing.T) {
	p := NewProctor(model.ExamSettings{EnableTimer: true}, 30)
	st := p.State()
	assert.Equal(t, PhaseNotEntered, st.Phase)
	assert.False(t, st.HasStarted)
	assert.True(t, st.TimerEnabled)

	require.NoError(t, p.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	require.NoError(t, p.Submit(true))
	st = p.State()
	assert.True(t, st.HasStarted)
	assert.True(t, st.IsSubmitting)
}

func TestSession_ClaimResultOnce(t *testing.T) {
	sess := New(sampleExam(model.ExamSettings{}))
	assert.False(t, sess.ClaimResult(), "cannot claim before submission")

	require.NoError(t, sess.Proctor.Enter(Candidate{ID: "u1", Authenticated: true}, false))
	require.NoError(t, sess.Proctor.Submit(true))

	assert.True(t, sess.ClaimResult())
	assert.False(t, sess.ClaimResult())
}
