package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

const examCacheTTL = 10 * time.Minute

// ExamReader is the database side of CachedExamStore.
type ExamReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// CachedExamStore serves exam snapshots from Redis, falling back to the
// database and repopulating the cache on a miss.
type CachedExamStore struct {
	repo ExamReader
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewCachedExamStore creates a new CachedExamStore.
func NewCachedExamStore(repo ExamReader, rdb *redis.Client, log zerolog.Logger) *CachedExamStore {
	return &CachedExamStore{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "exam_cache").Logger(),
	}
}

// FindExamByID implements ExamStore.
func (s *CachedExamStore) FindExamByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	key := config.CacheKey.ExamDefinitionKey(id.String())

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var exam model.Exam
		if err := json.Unmarshal(data, &exam); err == nil {
			return &exam, nil
		}
		s.log.Warn().Str("exam_id", id.String()).Msg("Corrupt cached exam, reloading")
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Exam cache read failed, using database")
	}

	exam, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	if payload, err := json.Marshal(exam); err == nil {
		if err := s.rdb.Set(ctx, key, payload, examCacheTTL).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to cache exam")
		}
	}
	return exam, nil
}

// Invalidate drops the cached snapshot so the next session sees the change.
// Sessions already started keep the snapshot they were built from.
func (s *CachedExamStore) Invalidate(ctx context.Context, id uuid.UUID) error {
	return s.rdb.Del(ctx, config.CacheKey.ExamDefinitionKey(id.String())).Err()
}
