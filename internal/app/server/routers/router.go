package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"opsguard/internal/app/server/handlers/agent"
	"opsguard/internal/app/server/handlers/event"
	"opsguard/internal/app/server/handlers/incident"
	"opsguard/internal/app/server/middlewares"
	"opsguard/pkg/logger"
	"opsguard/pkg/metrics"
)

// Options 路由级配置
type Options struct {
	RateLimit float64
	Burst     int
}

// SetupRoutes 配置所有路由
func SetupRoutes(
	log logger.Logger,
	opts Options,
	eventHandler *event.EventHandler,
	incidentHandler *incident.IncidentHandler,
	agentHandler *agent.AgentHandler,
) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.Recovery(log))
	r.Use(middlewares.Logger(log))
	r.Use(middlewares.RateLimit(opts.RateLimit, opts.Burst))
	r.Use(middlewares.ErrorHandler(log))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "event-processor",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/events", eventHandler.Create)

	incidents := r.Group("/incidents")
	{
		incidents.GET("/:id", incidentHandler.Get)
	}
	r.GET("/search", incidentHandler.Search)
	r.POST("/search", incidentHandler.Search)

	agents := r.Group("/agent")
	{
		agents.GET("/notifications", agentHandler.Notifications)
		agents.GET("/notifications/stream", agentHandler.Stream)
	}

	return r
}
