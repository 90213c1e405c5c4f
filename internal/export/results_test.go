package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestResultsWorkbook(t *testing.T) {
	submitted := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := []model.ResultSummary{
		{ID: uuid.New(), StudentName: "Sara", ExamTitle: "Physics", TotalScore: 7.5, MaxScore: 10, SubmittedAt: submitted, ViolationCount: 1},
		{ID: uuid.New(), StudentName: "Omar", ExamTitle: "Physics", TotalScore: 4, MaxScore: 10, SubmittedAt: submitted, ViolationCount: 0},
	}
	h := Headers{Sheet: "Results", Columns: []string{"Student", "Exam", "Score", "Max", "Date", "Violations"}}

	data, err := ResultsWorkbook(h, rows)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, h.Columns, got[0])
	assert.Equal(t, []string{"Sara", "Physics", "7.5", "10", "2025-03-01 09:30:00", "1"}, got[1])
	assert.Equal(t, "Omar", got[2][0])
}

func TestResultsWorkbook_Empty(t *testing.T) {
	data, err := ResultsWorkbook(Headers{Columns: []string{"A"}}, nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Results")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "results-abc-20250102-030405.xlsx", FileName("abc", at))
}
