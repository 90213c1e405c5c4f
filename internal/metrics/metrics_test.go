package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/exams/:exam_id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	counter := RequestCounter.WithLabelValues(http.MethodGet, "/exams/:exam_id", "404")
	before := testutil.ToFloat64(counter)

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/exams/"+id, nil))
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestPrometheusHandler_ExposesCollectors(t *testing.T) {
	Init()
	Init()
	SubmissionsTotal.WithLabelValues("manual").Inc()

	r := gin.New()
	r.GET("/metrics", PrometheusHandler())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `exam_submissions_total{reason="manual"}`)
}
