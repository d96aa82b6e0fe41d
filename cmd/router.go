package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/interfaces/rest/v1/handler"
	"go-socket-hub/internal/interfaces/sse"
	"go-socket-hub/internal/interfaces/websocket"
	"go-socket-hub/internal/port/inbound"
)

type RouterConfig struct {
	MetricsPath string
	// Gatherer is nil when metrics are disabled.
	Gatherer prometheus.Gatherer
}

func InitRouter(uc inbound.SubscriptionUseCase, log logger.Logger, cfg RouterConfig) http.Handler {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	rootGroup := router.Group("")

	// Simple debug endpoint
	rootGroup.GET("/debug", func(c *gin.Context) {
		log.Info("Debug endpoint hit!")
		c.JSON(http.StatusOK, gin.H{"debug": "working"})
	})

	// Health check endpoint
	rootGroup.GET("/hub/status", func(c *gin.Context) {
		status := uc.Status()
		code := http.StatusOK
		health := "healthy"
		if !status.Running {
			code = http.StatusServiceUnavailable
			health = "unavailable"
		}
		c.JSON(code, gin.H{
			"status":      health,
			"hub_running": status.Running,
			"connections": status.Connections,
			"endpoints":   status.Endpoints,
		})
	})

	if cfg.Gatherer != nil {
		rootGroup.GET(cfg.MetricsPath, gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	apiGroup := rootGroup.Group("/api/v1")
	handler.NewEndpointHandler(uc, log).RegisterRoutes(apiGroup)

	sse.InitSSERouter(log, uc, rootGroup)
	websocket.InitWebSocketRouter(log, uc, rootGroup)

	return router
}
