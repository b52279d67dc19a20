package handler

import (
	"context"
	"net/http"

	"realtime_chat/internal/gateway"
	"realtime_chat/internal/hub"
	"realtime_chat/internal/middleware"
	"realtime_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub              *hub.Hub
	gateway          *gateway.Gateway
	upgrader         websocket.Upgrader
	historyOnConnect bool
	log              logger.Logger
}

func NewWebSocketHandler(h *hub.Hub, gw *gateway.Gateway, allowedOrigins []string, historyOnConnect bool, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     h,
		gateway: gw,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		historyOnConnect: historyOnConnect,
		log:              log,
	}
}

// HandleChat апгрейдит соединение и регистрирует клиента в хабе.
// Дальше кадры клиента обрабатывает gateway из readPump.
func (h *WebSocketHandler) HandleChat(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Failed to upgrade connection", "error", err, "addr", c.ClientIP())
		return
	}

	client := hub.NewClient(h.hub, conn, c.ClientIP(), h.dispatch)
	if err := h.hub.Register(client); err != nil {
		h.log.Warn("Rejecting connection", "error", err)
		_ = conn.Close()
		return
	}

	if h.historyOnConnect {
		h.gateway.OnGetHistory(c.Request.Context(), client, "")
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, client *hub.Client, raw []byte) {
	h.gateway.Dispatch(ctx, client, raw)
}
