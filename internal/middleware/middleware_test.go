package middleware

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeTokens map[string]*service.Claims

func (f fakeTokens) ValidateToken(tokenStr string) (*service.Claims, error) {
	switch tokenStr {
	case "expired":
		return nil, fmt.Errorf("parse token: %w", jwt.ErrTokenExpired)
	}
	if c, ok := f[tokenStr]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

type fakeSessions struct {
	err error
}

func (f fakeSessions) ValidateSession(context.Context, *service.Claims) error {
	return f.err
}

var testTokens = fakeTokens{
	"teacher": {UserID: "t1", Name: "Teacher", Role: model.RoleTeacher},
	"student": {UserID: "s1", Name: "Student", Role: model.RoleStudent},
}

func okHandler(c *gin.Context) {
	claims := GetClaims(c)
	if claims == nil {
		c.String(http.StatusOK, "guest")
		return
	}
	c.String(http.StatusOK, claims.UserID)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireJWT(t *testing.T) {
	r := gin.New()
	r.GET("/p", RequireJWT(testTokens), okHandler)

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantErr  response.ErrCode
		wantBody string
	}{
		{name: "missing", wantCode: http.StatusUnauthorized, wantErr: response.ErrTokenRequired},
		{name: "invalid", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantErr: response.ErrTokenInvalid},
		{name: "expired", header: "Bearer expired", wantCode: http.StatusUnauthorized, wantErr: response.ErrTokenExpired},
		{name: "header", header: "Bearer teacher", wantCode: http.StatusOK, wantBody: "t1"},
		{name: "lowercase scheme", header: "bearer student", wantCode: http.StatusOK, wantBody: "s1"},
		{name: "query fallback", query: "?token=student", wantCode: http.StatusOK, wantBody: "s1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/p"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := serve(r, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Contains(t, w.Body.String(), string(tt.wantErr))
			} else {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestOptionalWSAuth(t *testing.T) {
	r := gin.New()
	r.GET("/ws", OptionalWSAuth(testTokens), okHandler)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "guest", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=student", nil))
	assert.Equal(t, "s1", w.Body.String())

	w = serve(r, httptest.NewRequest(http.MethodGet, "/ws?token=forged", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireCurrentSession(t *testing.T) {
	build := func(err error) *gin.Engine {
		r := gin.New()
		r.GET("/p", OptionalWSAuth(testTokens), RequireCurrentSession(fakeSessions{err: err}), okHandler)
		return r
	}

	w := serve(build(nil), httptest.NewRequest(http.MethodGet, "/p?token=teacher", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(build(service.ErrSessionInvalidated), httptest.NewRequest(http.MethodGet, "/p?token=teacher", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrSessionInvalidated))

	w = serve(build(errors.New("redis down")), httptest.NewRequest(http.MethodGet, "/p?token=teacher", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	// Guests are not checked.
	w = serve(build(service.ErrSessionInvalidated), httptest.NewRequest(http.MethodGet, "/p", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/student", RequireJWT(testTokens), RequireRole(model.RoleStudent), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/student", nil)
	req.Header.Set("Authorization", "Bearer student")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/student", nil)
	req.Header.Set("Authorization", "Bearer teacher")
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrForbidden))
}

func TestRequireStaff(t *testing.T) {
	r := gin.New()
	r.GET("/staff", RequireJWT(testTokens), RequireStaff(), okHandler)
	r.GET("/bare", RequireStaff(), okHandler)

	req := httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer teacher")
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/staff", nil)
	req.Header.Set("Authorization", "Bearer student")
	w := serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrStaffAccessOnly))

	assert.Equal(t, http.StatusUnauthorized, serve(r, httptest.NewRequest(http.MethodGet, "/bare", nil)).Code)
}

func TestRateLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(3, time.Minute)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"), "limits are per IP")

	// One token refills every 20s.
	now = now.Add(21 * time.Second)
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
}

func TestRateLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(visitorIdleTTL + time.Second)
	rl.Allow("b")
	rl.Cleanup()

	assert.NotContains(t, rl.visitors, "a")
	assert.Contains(t, rl.visitors, "b")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	r := gin.New()
	r.POST("/login", rl.Middleware(), okHandler)

	assert.Equal(t, http.StatusOK, serve(r, httptest.NewRequest(http.MethodPost, "/login", nil)).Code)
	w := serve(r, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), string(response.ErrRateLimitExceeded))
}

func TestCompress(t *testing.T) {
	large := strings.Repeat("exam ", 1000)

	r := gin.New()
	r.Use(Compress(brotli.DefaultCompression, 256))
	r.GET("/large", func(c *gin.Context) { c.String(http.StatusOK, large) })
	r.GET("/small", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/large", nil)
	req.Header.Set("Accept-Encoding", "gzip, br")
	w := serve(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.Equal(t, large, string(body))

	req = httptest.NewRequest(http.MethodGet, "/small", nil)
	req.Header.Set("Accept-Encoding", "br")
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, "ok", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/large", nil)
	w = serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, large, w.Body.String())
}

func TestCompress_SkipsEventStream(t *testing.T) {
	r := gin.New()
	r.Use(Compress(brotli.DefaultCompression, 1))
	r.GET("/sse", func(c *gin.Context) { c.String(http.StatusOK, strings.Repeat("x", 100)) })

	req := httptest.NewRequest(http.MethodGet, "/sse", nil)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Accept-Encoding", "br")
	w := serve(r, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}
