package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// HeaderTraceID 请求链路 ID，透传到队列消息
const HeaderTraceID = "X-Trace-Id"

// Logger 访问日志 + trace_id 注入 + 请求指标
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx := logger.WithTraceID(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, traceID)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDurationSeconds.WithLabelValues(route).Observe(elapsed.Seconds())

		log.Infof(ctx, "[API] %s %s %d %s", c.Request.Method, c.Request.URL.Path, status, elapsed)
	}
}

// TraceID 读取 Logger 中间件注入的 trace_id
func TraceID(c *gin.Context) string {
	if v, ok := c.Request.Context().Value(logger.KeyTraceID).(string); ok {
		return v
	}
	return ""
}
