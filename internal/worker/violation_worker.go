package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/model"
)

// ViolationEvent is one integrity signal queued for the audit table.
type ViolationEvent struct {
	ExamID     string              `json:"exam_id"`
	StudentID  string              `json:"student_id"`
	Kind       model.ViolationKind `json:"kind"`
	Count      int                 `json:"count"`
	RecordedAt int64               `json:"recorded_at"`
}

// ViolationWorker persists violation events to exam_violations.
type ViolationWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewViolationWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ViolationWorker {
	return &ViolationWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "violation_worker").Logger(),
	}
}

func (w *ViolationWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ViolationWorker started")

	buffer := make([]*ViolationEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistViolationsQueue).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var ev ViolationEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &ev)
	}
}

func (w *ViolationWorker) flushSafe(ctx context.Context, batch []*ViolationEvent) {
	if len(batch) == 0 {
		return
	}
	if err := w.bulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

func (w *ViolationWorker) bulkInsert(ctx context.Context, batch []*ViolationEvent) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, ev := range batch {
		examID, err := uuid.Parse(ev.ExamID)
		if err != nil {
			// The fallback drops the bad row individually.
			return err
		}
		rows = append(rows, []interface{}{
			examID, ev.StudentID, string(ev.Kind), ev.Count, time.UnixMilli(ev.RecordedAt),
		})
	}

	_, err := w.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_violations"},
		[]string{"exam_id", "student_id", "kind", "violation_count", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (w *ViolationWorker) fallbackInsert(ctx context.Context, batch []*ViolationEvent) {
	requeueList := make([]*ViolationEvent, 0)

	for _, ev := range batch {
		examID, err := uuid.Parse(ev.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", ev.ExamID).Msg("Dropping violation with invalid exam UUID")
			continue
		}

		_, err = w.pool.Exec(ctx,
			`INSERT INTO exam_violations (exam_id, student_id, kind, violation_count, recorded_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			examID, ev.StudentID, string(ev.Kind), ev.Count, time.UnixMilli(ev.RecordedAt),
		)
		if err != nil {
			w.log.Error().Err(err).Str("student_id", ev.StudentID).Msg("Insert failed, requeueing")
			requeueList = append(requeueList, ev)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func (w *ViolationWorker) requeue(ctx context.Context, items []*ViolationEvent) {
	pipe := w.rdb.Pipeline()
	for _, ev := range items {
		data, _ := json.Marshal(ev)
		pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue violations to Redis. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed violations back to Redis")
	time.Sleep(2 * time.Second)
}

func (w *ViolationWorker) shutdown(buffer []*ViolationEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.flushSafe(shutdownCtx, buffer)
}
