package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
)

type fakeWriter struct {
	bulkErr   error
	bulkCalls int
	inserted  []uuid.UUID
}

func (f *fakeWriter) BulkInsert(_ context.Context, results []*model.ExamResult) (int64, error) {
	f.bulkCalls++
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	for _, r := range results {
		f.inserted = append(f.inserted, r.ID)
	}
	return int64(len(results)), nil
}

func (f *fakeWriter) Insert(_ context.Context, res *model.ExamResult) error {
	f.inserted = append(f.inserted, res.ID)
	return nil
}

func batchOf(n int) []*model.ExamResult {
	out := make([]*model.ExamResult, n)
	for i := range out {
		out[i] = &model.ExamResult{ID: uuid.New()}
	}
	return out
}

func TestFlushSafe_Bulk(t *testing.T) {
	repo := &fakeWriter{}
	w := NewResultWorker(repo, nil, zerolog.Nop())

	w.flushSafe(context.Background(), batchOf(3))

	assert.Equal(t, 1, repo.bulkCalls)
	assert.Len(t, repo.inserted, 3)
}

func TestFlushSafe_FallsBackToRows(t *testing.T) {
	repo := &fakeWriter{bulkErr: errors.New("duplicate key")}
	w := NewResultWorker(repo, nil, zerolog.Nop())
	batch := batchOf(2)

	w.flushSafe(context.Background(), batch)

	assert.Equal(t, []uuid.UUID{batch[0].ID, batch[1].ID}, repo.inserted)
}

func TestFlushSafe_EmptyBatch(t *testing.T) {
	repo := &fakeWriter{}
	w := NewResultWorker(repo, nil, zerolog.Nop())

	w.flushSafe(context.Background(), nil)
	assert.Zero(t, repo.bulkCalls)
}
