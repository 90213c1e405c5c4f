package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/response"
)

const healthTimeout = 2 * time.Second

// SystemHandler reports process health and worker queue depth.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Postgres   string `json:"postgres"`
	Redis      string `json:"redis"`
	Goroutines int    `json:"goroutines"`
	GoVersion  string `json:"go_version"`

	QueueResults    int64 `json:"queue_results"`
	QueueViolations int64 `json:"queue_violations"`
}

// Health godoc
// GET /health
// Returns 200 when Postgres and Redis answer, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
		Postgres:   "ok",
		Redis:      "ok",
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	if err := h.pool.Ping(ctx); err != nil {
		report.Status, report.Postgres = "degraded", err.Error()
	}

	pipe := h.rdb.Pipeline()
	resultsCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
	violationsCmd := pipe.LLen(ctx, config.WorkerKey.PersistViolationsQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		report.Status, report.Redis = "degraded", err.Error()
	} else {
		report.QueueResults, _ = resultsCmd.Result()
		report.QueueViolations, _ = violationsCmd.Result()
		metrics.QueueDepth.WithLabelValues(config.WorkerKey.PersistResultsQueue).Set(float64(report.QueueResults))
		metrics.QueueDepth.WithLabelValues(config.WorkerKey.PersistViolationsQueue).Set(float64(report.QueueViolations))
	}

	if report.Status != "ok" {
		h.log.Warn().Str("postgres", report.Postgres).Str("redis", report.Redis).Msg("Health check degraded")
		c.JSON(http.StatusServiceUnavailable, report)
		return
	}
	response.Success(c, http.StatusOK, report)
}
