package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResultRecords struct {
	inserted []*model.ExamResult
}

func (f *fakeResultRecords) Insert(_ context.Context, res *model.ExamResult) error {
	f.inserted = append(f.inserted, res)
	return nil
}

func (f *fakeResultRecords) GetByID(context.Context, uuid.UUID) (*model.ExamResult, error) {
	return nil, ErrResultNotFound
}

func (f *fakeResultRecords) UpdateGrades(context.Context, *model.ExamResult) error {
	return nil
}

func TestQueuedResultStore_InsertsWhenQueueUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	records := &fakeResultRecords{}
	store := NewQueuedResultStore(records, rdb)
	res := &model.ExamResult{ID: uuid.New(), ExamID: uuid.New(), StudentID: "guest-1"}

	require.NoError(t, store.AppendResult(context.Background(), res))
	require.Len(t, records.inserted, 1)
	assert.Equal(t, res.ID, records.inserted[0].ID)
}
