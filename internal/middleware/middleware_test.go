package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachkp/resume-terminal/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func get(r http.Handler, path, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = ip + ":1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/q", NewRateLimiter(60, 2, time.Minute).Handler(), func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	assert.Equal(t, http.StatusOK, get(r, "/q", "10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, get(r, "/q", "10.0.0.1").Code)

	w := get(r, "/q", "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"code":429,"message":"rate limit exceeded"}`, w.Body.String())
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, get(r, "/q", "10.0.0.2").Code, "other IPs have their own bucket")
}

func TestRateLimiterRefillAndSweep(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(60, 1, time.Minute)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "one token per second at 60/min")
	assert.True(t, rl.Allow("b"))
	require.Equal(t, 2, rl.Len())

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 2, rl.Sweep())
	assert.Equal(t, 0, rl.Len())
}

func TestRequestLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := gin.New()
	r.Use(RequestLog(log))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	get(r, "/boom", "10.0.0.3")
	out := buf.String()
	assert.Contains(t, out, "level=ERROR")
	assert.Contains(t, out, "path=/boom")
	assert.Contains(t, out, "status=500")
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/projects/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	c := metrics.RequestTotal.WithLabelValues(http.MethodGet, "/projects/:id", "200")
	before := testutil.ToFloat64(c)
	get(r, "/projects/2", "10.0.0.4")
	get(r, "/projects/3", "10.0.0.4")
	assert.Equal(t, before+2, testutil.ToFloat64(c))

	miss := metrics.RequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	before = testutil.ToFloat64(miss)
	get(r, "/nowhere", "10.0.0.4")
	assert.Equal(t, before+1, testutil.ToFloat64(miss))
}
