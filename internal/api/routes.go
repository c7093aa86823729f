package api

import (
	"net/http"

	"github.com/AlexandrinoANP/ANP/internal/config"
	"github.com/AlexandrinoANP/ANP/internal/container"
	"github.com/AlexandrinoANP/ANP/internal/metrics"
	"github.com/AlexandrinoANP/ANP/internal/websocket"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, c *container.Container) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(cfg.Tracing))
	}
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware(c.Logger()))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(I18nMiddleware())
	router.Use(ErrorHandlerMiddleware())

	// 健康检查
	healthController := NewHealthController(c.DB(), c.Orchestrator())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 实时推送,长连接不参与限流
	wsHandler := websocket.WebSocketHandler(c.Hub(), websocket.NewUpgrader(cfg.CORS.AllowedOrigins))
	router.GET("/ws/tasks", wsHandler)
	router.GET("/ws/tasks/:id", wsHandler)

	sseHandler := SSEHandler(c.Orchestrator(), DefaultSSEHeartbeat)
	router.GET("/sse/tasks", sseHandler)
	router.GET("/sse/tasks/:id", sseHandler)

	taskController := NewTaskController(c.TaskService())
	queryController := NewQueryController(c.QueryService())
	dashboardController := NewDashboardController(c.StatisticsService())

	// API v1 路由组
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	{
		commands := v1.Group("/commands")
		{
			commands.POST("", taskController.Submit)
			commands.GET("/suggestions", dashboardController.Suggestions)
		}

		tasks := v1.Group("/tasks")
		{
			tasks.GET("", queryController.ListTasks)
			tasks.GET("/:id", taskController.Get)
			tasks.GET("/:id/history", queryController.GetHistory)
			tasks.GET("/:id/events", queryController.GetEvents)
		}

		v1.GET("/orchestrator/status", taskController.Status)
		v1.GET("/integrations", dashboardController.Integrations)
		v1.GET("/statistics", dashboardController.Statistics)
	}

	// 未匹配的路由返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
