package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"

	"opsguard/pkg/errorutil"
	"opsguard/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "192.0.2.10:4321"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(1, 1))
	r.GET("/events", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, "/events").Code)
	w := serve(r, "/events")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(r, "/health").Code)
	}
}

func TestRateLimitDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(0, 0))
	r.GET("/events", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusOK, serve(r, "/events").Code)
	}
}

func TestErrorHandlerMapsKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: errorutil.NotFound("missing"), want: http.StatusNotFound},
		{name: "malformed", err: errorutil.Malformed("bad input", nil), want: http.StatusBadRequest},
		{name: "transient", err: errorutil.Transient("redis down", errors.New("eof")), want: http.StatusServiceUnavailable},
		{name: "plain", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(ErrorHandler(logger.FromZap(zaptest.NewLogger(t))))
			r.GET("/x", func(c *gin.Context) { _ = c.Error(tt.err) })

			assert.Equal(t, tt.want, serve(r, "/x").Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(logger.FromZap(zaptest.NewLogger(t))))
	r.GET("/x", func(c *gin.Context) { panic("boom") })

	w := serve(r, "/x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestLoggerInjectsTraceID(t *testing.T) {
	r := gin.New()
	r.Use(Logger(logger.FromZap(zaptest.NewLogger(t))))
	var seen string
	r.GET("/x", func(c *gin.Context) {
		seen = TraceID(c)
		c.Status(http.StatusNoContent)
	})

	w := serve(r, "/x")
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(HeaderTraceID))
}
