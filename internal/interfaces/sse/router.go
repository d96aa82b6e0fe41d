package sse

import (
	"github.com/gin-gonic/gin"

	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/port/inbound"
)

func InitSSERouter(logger logger.Logger, uc inbound.SubscriptionUseCase, rg *gin.RouterGroup) {
	sseHandler := NewServerSentEventHandler(uc, logger)

	sseGroup := rg.Group("/sse")
	sseGroup.GET("", sseHandler.Stream)
}

// writeStreamHeaders must run after a successful subscribe; error responses are JSON.
func writeStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
}
