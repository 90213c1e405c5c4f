package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/grading"
	"github.com/stemsi/exam-portal/internal/model"
)

// ResultRecords is the database side of QueuedResultStore.
type ResultRecords interface {
	Insert(ctx context.Context, res *model.ExamResult) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamResult, error)
	UpdateGrades(ctx context.Context, res *model.ExamResult) error
}

// QueuedResultStore appends results through the Redis persistence queue
// drained by worker.ResultWorker, and amends them directly in PostgreSQL.
// When the queue is unreachable the result is inserted directly.
type QueuedResultStore struct {
	repo ResultRecords
	rdb  *redis.Client
}

// NewQueuedResultStore creates a new QueuedResultStore.
func NewQueuedResultStore(repo ResultRecords, rdb *redis.Client) *QueuedResultStore {
	return &QueuedResultStore{repo: repo, rdb: rdb}
}

// AppendResult implements ResultStore.
func (s *QueuedResultStore) AppendResult(ctx context.Context, res *model.ExamResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	queueErr := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err()
	if queueErr == nil {
		return nil
	}
	if err := s.repo.Insert(ctx, res); err != nil {
		return fmt.Errorf("queue result: %w; insert result: %w", queueErr, err)
	}
	return nil
}

// AmendResult implements ResultStore.
func (s *QueuedResultStore) AmendResult(ctx context.Context, resultID uuid.UUID, answers []model.GradedAnswer) (*model.ExamResult, error) {
	res, err := s.repo.GetByID(ctx, resultID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("load result: %w", err)
	}

	grading.Regrade(res, answers)

	if err := s.repo.UpdateGrades(ctx, res); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResultNotFound
		}
		return nil, fmt.Errorf("update result: %w", err)
	}
	return res, nil
}
