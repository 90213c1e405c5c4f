package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ResultWriter is the persistence side of the result queue.
type ResultWriter interface {
	BulkInsert(ctx context.Context, results []*model.ExamResult) (int64, error)
	Insert(ctx context.Context, res *model.ExamResult) error
}

// ResultWorker drains persist_results_queue into PostgreSQL in batches.
type ResultWorker struct {
	repo ResultWriter
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewResultWorker(repo ResultWriter, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "result_worker").Logger(),
	}
}

func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	buffer := make([]*model.ExamResult, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check Flush Conditions (Time or Size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		// 2. Check Context (Graceful Shutdown)
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistResultsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		// 4. Process Data
		if len(result) < 2 {
			continue
		}

		var res model.ExamResult
		if err := json.Unmarshal([]byte(result[1]), &res); err != nil {
			// Malformed JSON cannot be retried.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed result")
			continue
		}

		buffer = append(buffer, &res)
	}
}

// flushSafe attempts bulk insert, then row-by-row insert, then requeue.
func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.ExamResult) {
	if len(batch) == 0 {
		return
	}

	n, err := w.repo.BulkInsert(ctx, batch)
	if err == nil {
		w.log.Debug().Int64("rows", n).Msg("Results persisted")
		return
	}

	// COPY aborts on a duplicate ID, so the row path uses ON CONFLICT.
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	requeueList := make([]*model.ExamResult, 0)
	for _, res := range batch {
		if err := w.repo.Insert(ctx, res); err != nil {
			w.log.Error().Err(err).Str("result_id", res.ID.String()).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, res)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ResultWorker) requeue(ctx context.Context, items []*model.ExamResult) {
	pipe := w.rdb.Pipeline()
	for _, res := range items {
		data, _ := json.Marshal(res)
		pipe.RPush(ctx, config.WorkerKey.PersistResultsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue results to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed results back to Redis")
	// Avoid thrashing while the DB is down.
	time.Sleep(2 * time.Second)
}

func (w *ResultWorker) shutdown(buffer []*model.ExamResult) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.flushSafe(shutdownCtx, buffer)
}
