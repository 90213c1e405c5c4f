package router

import (
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/handler"
	"github.com/stemsi/exam-portal/internal/metrics"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Exam      *handler.ExamHandler
	Result    *handler.ResultHandler
	WS        *handler.WSHandler
	Monitor   *handler.MonitorHandler
	Dashboard *handler.DashboardHandler
	System    *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	authLimiter *middleware.RateLimiter,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(metrics.MetricsMiddleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	api := router.Group("/api/v1")
	api.Use(middleware.Compress(brotli.DefaultCompression, 0))

	requireSession := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.RequireCurrentSession(authService),
	}

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", append(requireSession, handlers.Auth.Me)...)
		auth.POST("/logout", append(requireSession, handlers.Auth.Logout)...)
	}

	// ─── 2. Public lobby ───────────────────────────────────────────────
	api.GET("/exams/:exam_id", handlers.Exam.Overview)

	// ─── 3. Student Group ──────────────────────────────────────────────
	studentAPI := api.Group("/student")
	studentAPI.Use(requireSession...)
	studentAPI.Use(middleware.RequireRole(model.RoleStudent))
	{
		studentAPI.GET("/results", handlers.Result.ListOwn)
	}

	// ─── 4. Staff Group (Teacher / Admin) ──────────────────────────────
	staffAPI := api.Group("/staff")
	staffAPI.Use(requireSession...)
	staffAPI.Use(middleware.RequireStaff())
	{
		staffAPI.GET("/dashboard", handlers.Dashboard.GetDashboardData)

		staffAPI.GET("/exams", handlers.Exam.ListExams)
		staffAPI.POST("/exams", handlers.Exam.CreateExam)
		staffAPI.GET("/exams/:id", handlers.Exam.GetExam)
		staffAPI.PUT("/exams/:id", handlers.Exam.UpdateExam)
		staffAPI.PATCH("/exams/:id/status", handlers.Exam.ToggleStatus)

		staffAPI.GET("/exams/:id/results", handlers.Result.ListByExam)
		staffAPI.GET("/exams/:id/results/export", handlers.Result.Export)
		staffAPI.GET("/exams/:id/monitor", handlers.Monitor.MonitorExamSSE)

		staffAPI.GET("/results/:id", handlers.Result.GetResult)
		staffAPI.PUT("/results/:id/grade", handlers.Result.Regrade)
	}

	// ─── 5. WebSocket Group (optional auth, guests by name) ────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.OptionalWSAuth(authService),
		middleware.RequireCurrentSession(authService),
	)
	{
		ws.GET("/exams/:exam_id/session", handlers.WS.ExamSession)
	}

	return router
}
