package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/interfaces/relay"
	"go-socket-hub/internal/port/inbound"
)

type EndpointHandler struct {
	subscriptions inbound.SubscriptionUseCase
	logger        logger.Logger
}

func NewEndpointHandler(uc inbound.SubscriptionUseCase, logger logger.Logger) *EndpointHandler {
	return &EndpointHandler{
		subscriptions: uc,
		logger:        logger.WithField("handler", "endpoint"),
	}
}

// List returns every endpoint with observers or a live connection.
func (h *EndpointHandler) List(c *gin.Context) {
	endpoints := h.subscriptions.Endpoints()
	status := h.subscriptions.Status()

	c.JSON(http.StatusOK, gin.H{
		"total_endpoints": len(endpoints),
		"endpoints":       endpoints,
		"hub_running":     status.Running,
		"connections":     status.Connections,
	})
}

// Send writes one message through the shared connection of an endpoint.
func (h *EndpointHandler) Send(c *gin.Context) {
	var req inbound.SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Errorf("Invalid request format: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid message format",
		})
		return
	}

	if err := h.subscriptions.Send(req); err != nil {
		h.logger.Errorf("Failed to send message to %s: %v", req.URL, err)
		c.JSON(relay.StatusCode(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "sent",
		"url":    req.URL,
		"bytes":  len(req.Message),
	})
}

// Reset tears down the endpoint in the url query parameter, or every endpoint without one.
func (h *EndpointHandler) Reset(c *gin.Context) {
	rawURL := c.Query("url")
	socketIO, _ := strconv.ParseBool(c.Query("socketio"))

	if err := h.subscriptions.Reset(rawURL, socketIO); err != nil {
		c.JSON(relay.StatusCode(err), gin.H{
			"error": err.Error(),
		})
		return
	}

	scope := rawURL
	if scope == "" {
		scope = "all"
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "reset",
		"scope":  scope,
	})
}

// RegisterRoutes mounts the endpoint API on rg.
func (h *EndpointHandler) RegisterRoutes(rg *gin.RouterGroup) {
	endpoints := rg.Group("/endpoints")
	endpoints.GET("", h.List)
	endpoints.POST("/send", h.Send)
	endpoints.DELETE("", h.Reset)
}
