package middlewares

import (
	"github.com/gin-gonic/gin"

	"opsguard/internal/app/server/ginx"
	"opsguard/pkg/logger"
)

// ErrorHandler 统一错误处理：handler 通过 c.Error 上报，未写响应时按错误分类输出
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err
		log.Warnf(c.Request.Context(), "[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		if !c.Writer.Written() {
			ginx.FromError(c, err)
		}
	}
}

// Recovery 捕获 handler panic，返回 500
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorf(c.Request.Context(), "[API] panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		ginx.InternalError(c, "internal server error")
	})
}
