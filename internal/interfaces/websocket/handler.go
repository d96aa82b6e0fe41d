package websocket

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"go-socket-hub/internal/infrastructure/logger"
	"go-socket-hub/internal/interfaces/relay"
	"go-socket-hub/internal/port/inbound"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// WebSocketHandler relays a shared upstream connection to downstream WebSocket clients.
type WebSocketHandler struct {
	subscriptions inbound.SubscriptionUseCase
	logger        logger.Logger
	upgrader      websocket.Upgrader
}

func NewWebSocketHandler(uc inbound.SubscriptionUseCase, logger logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		subscriptions: uc,
		logger:        logger.WithField("handler", "websocket"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Connect subscribes to the upstream endpoint and then upgrades the request.
// Hub events are written as JSON envelopes; frames read from the client are sent upstream.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	var req inbound.SubscribeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rl := relay.New(relay.DefaultBufferSize, h.logger)
	sub, err := h.subscriptions.Subscribe(req, rl.Options(), rl)
	if err != nil {
		h.logger.Warnf("WebSocket subscribe to %q rejected: %v", req.URL, err)
		c.JSON(relay.StatusCode(err), gin.H{"error": err.Error()})
		return
	}
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("Failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	endpoint := sub.Key()
	log := h.logger.WithField("endpoint", endpoint)
	log.Info("WebSocket client attached")

	readDone := make(chan error, 1)
	go h.readPump(conn, sub, rl, readDone)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case err := <-readDone:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("WebSocket client read failed: %v", err)
			} else {
				log.Info("WebSocket client disconnected")
			}
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case ev := <-rl.Events():
			env := ev.Envelope(endpoint)
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				log.Warnf("WebSocket write failed: %v", err)
				return
			}
			if relay.Terminal(ev, req.Reconnect, sub.Active()) {
				log.Infof("WebSocket relay ended after %s", env.Type)
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "upstream ended"),
					time.Now().Add(writeWait))
				return
			}
		}
	}
}

// readPump forwards client frames upstream. Send failures are reported back to the
// client as error envelopes.
func (h *WebSocketHandler) readPump(conn *websocket.Conn, sub inbound.Subscription, rl *relay.Relay, done chan<- error) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			done <- err
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := sub.Send(data); err != nil {
			h.logger.Debugf("Forward to %s failed: %v", sub.Key(), err)
			rl.Report(err)
		}
	}
}
