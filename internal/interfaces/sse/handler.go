package sse

import (
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/interfaces/relay"
	"go-socket-hub/internal/port/inbound"
)

const keepaliveInterval = 30 * time.Second

type ServerSentEventHandler struct {
	subscriptions inbound.SubscriptionUseCase
	logger        logger.Logger
	keepalive     time.Duration
}

func NewServerSentEventHandler(uc inbound.SubscriptionUseCase, logger logger.Logger) *ServerSentEventHandler {
	return &ServerSentEventHandler{
		subscriptions: uc,
		logger:        logger.WithField("handler", "sse"),
		keepalive:     keepaliveInterval,
	}
}

// Stream attaches the client to the upstream endpoint in the url query parameter and
// relays every hub event as an SSE frame until the client leaves or the upstream ends.
func (h *ServerSentEventHandler) Stream(c *gin.Context) {
	var req inbound.SubscribeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rl := relay.New(relay.DefaultBufferSize, h.logger)
	sub, err := h.subscriptions.Subscribe(req, rl.Options(), rl)
	if err != nil {
		h.logger.Warnf("SSE subscribe to %q rejected: %v", req.URL, err)
		c.JSON(relay.StatusCode(err), gin.H{"error": err.Error()})
		return
	}
	defer sub.Close()

	endpoint := sub.Key()
	log := h.logger.WithField("endpoint", endpoint)
	log.Info("SSE client attached")

	w := c.Writer
	writeStreamHeaders(c)
	w.WriteHeader(http.StatusOK)
	_ = sse.Encode(w, sse.Event{
		Event: "connected",
		Data: map[string]any{
			"endpoint":  endpoint,
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
	w.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return
		case <-ticker.C:
			if err := sse.Encode(w, sse.Event{Event: "keepalive", Data: time.Now().Unix()}); err != nil {
				return
			}
			w.Flush()
		case ev := <-rl.Events():
			env := ev.Envelope(endpoint)
			if err := sse.Encode(w, sse.Event{Id: env.ID, Event: env.Type, Data: env}); err != nil {
				log.Warnf("SSE write failed: %v", err)
				return
			}
			w.Flush()
			if relay.Terminal(ev, req.Reconnect, sub.Active()) {
				log.Infof("SSE stream ended after %s", env.Type)
				return
			}
		}
	}
}
