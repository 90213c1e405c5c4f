package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_submissions_total",
			Help: "Exam sessions submitted, by reason",
		},
		[]string{"reason"},
	)

	ViolationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exam_violations_total",
			Help: "Integrity violations recorded, by kind",
		},
		[]string{"kind"},
	)

	EssayGradingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "essay_grading_duration_seconds",
			Help:    "Latency of external essay grading calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20},
		},
	)

	EssayGradingFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "essay_grading_fallbacks_total",
			Help: "Essay grading calls replaced by the manual review fallback",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "exam_active_sessions",
			Help: "Websocket exam sessions currently open",
		},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_queue_depth",
			Help: "Pending items in background persistence queues",
		},
		[]string{"queue"},
	)
)

var once sync.Once

// Init registers all collectors with the default registry. Safe to call twice.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			SubmissionsTotal,
			ViolationsTotal,
			EssayGradingDuration,
			EssayGradingFallbacks,
			ActiveSessions,
			QueueDepth,
		)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
