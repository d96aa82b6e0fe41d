package websocket

import (
	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/port/inbound"

	"github.com/gin-gonic/gin"
)

// InitWebSocketRouter initializes WebSocket routes
func InitWebSocketRouter(logger logger.Logger, uc inbound.SubscriptionUseCase, rg *gin.RouterGroup) {
	wsHandler := NewWebSocketHandler(uc, logger)

	wsGroup := rg.Group("/ws")
	wsGroup.GET("", wsHandler.Connect)
}
