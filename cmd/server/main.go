package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/events"
	"github.com/stemsi/exam-portal/internal/grading"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/i18n"
	"github.com/stemsi/exam-portal/internal/llm"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/router"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/storage"
	"github.com/stemsi/exam-portal/internal/validator"
	"github.com/stemsi/exam-portal/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("locale", cfg.DefaultLocale).
		Bool("essay_grading", cfg.EssayGradingEnabled()).
		Msg("Starting exam portal")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Localization ──────────────────────────────────────────────────
	catalog, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load locale catalog")
	}

	// ─── Result Events ─────────────────────────────────────────────────
	publisher, inProcess, err := events.NewPublisher(events.PublisherConfig{
		KafkaBrokers: cfg.KafkaBrokers,
		Topic:        cfg.KafkaTopic,
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create event publisher")
	}
	defer publisher.Close()

	// ─── Optional Export Archive ───────────────────────────────────────
	var archiver storage.Archiver
	if cfg.MinIOEndpoint != "" {
		a, err := storage.NewMinioArchiver(ctx, storage.Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			Bucket:    cfg.MinIOBucket,
			UseSSL:    cfg.MinIOUseSSL,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("Export archiving disabled")
		} else {
			archiver = a
		}
	}

	// ─── Essay Grader ──────────────────────────────────────────────────
	var essayGrader grading.EssayGrader
	if cfg.EssayGradingEnabled() {
		essayGrader = llm.New(llm.Config{
			BaseURL:           cfg.LLMBaseURL,
			APIKey:            cfg.LLMAPIKey,
			Model:             cfg.LLMModel,
			Temperature:       cfg.LLMTemperature,
			RequestsPerSecond: cfg.LLMRequestsPerSec,
			FeedbackLanguage:  feedbackLanguage(catalog.Language()),
		}, log)
	}
	pipeline := grading.NewPipeline(essayGrader, catalog, grading.PipelineConfig{
		Timeout:     cfg.GraderTimeout,
		Concurrency: cfg.GraderConcurrency,
	}, log)

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	examStore := service.NewCachedExamStore(examRepo, rdb, log)
	resultStore := service.NewQueuedResultStore(resultRepo, rdb)
	monitorService := service.NewMonitorService(rdb, resultRepo, log)

	authService := service.NewAuthService(cfg, userRepo, rdb)
	examService := service.NewExamService(examRepo, examStore, catalog, log)
	sessionService := service.NewExamSessionService(
		examStore,
		resultStore,
		pipeline,
		service.NewRedisViolationSink(rdb),
		monitorService,
		publisher,
		cfg.WarningTTL,
		log,
	)
	dashboardService := service.NewDashboardService(dashboardRepo)
	resultService := service.NewResultService(resultRepo, resultStore, catalog, archiver, publisher, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, log),
		Exam:      handler.NewExamHandler(examService, sessionService, log),
		Result:    handler.NewResultHandler(resultService, log),
		WS:        handler.NewWSHandler(sessionService, catalog, log, cfg.AllowedOrigins),
		Monitor:   handler.NewMonitorHandler(examService, monitorService, log),
		Dashboard: handler.NewDashboardHandler(dashboardService, log),
		System:    handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	resultWorker := worker.NewResultWorker(resultRepo, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)

	workers.Add(2)
	go func() { defer workers.Done(); resultWorker.Start(workerCtx) }()
	go func() { defer workers.Done(); violationWorker.Start(workerCtx) }()

	if inProcess != nil {
		go func() {
			if err := events.Consume(workerCtx, inProcess, cfg.KafkaTopic, events.LogHandler(log), log); err != nil {
				log.Error().Err(err).Msg("In-process event consumer stopped")
			}
		}()
	}

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	go authLimiter.Run(workerCtx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, authLimiter, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Hijacked WebSocket connections
	// are not tracked by Shutdown; in-flight finalizations keep running on
	// their own detached contexts.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers; each flushes its buffer before returning.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// feedbackLanguage names the catalog language for the grading prompt.
func feedbackLanguage(lang string) string {
	switch lang {
	case "en":
		return "English"
	default:
		return "Arabic"
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
