package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/worker"
)

// RedisViolationSink queues violations for worker.ViolationWorker.
type RedisViolationSink struct {
	rdb *redis.Client
}

func NewRedisViolationSink(rdb *redis.Client) *RedisViolationSink {
	return &RedisViolationSink{rdb: rdb}
}

// RecordViolation implements ViolationSink.
func (s *RedisViolationSink) RecordViolation(ctx context.Context, examID uuid.UUID, studentID string, kind model.ViolationKind, count int) error {
	payload, err := json.Marshal(worker.ViolationEvent{
		ExamID:     examID.String(),
		StudentID:  studentID,
		Kind:       kind,
		Count:      count,
		RecordedAt: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, payload).Err()
}
