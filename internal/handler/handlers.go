package handler

import (
	"realtime_chat/internal/config"
	"realtime_chat/internal/gateway"
	"realtime_chat/internal/hub"
	"realtime_chat/internal/repository"
	"realtime_chat/internal/service"
	"realtime_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Health    *HealthHandler
	Chat      *ChatHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, repos *repository.Repositories, h *hub.Hub, gw *gateway.Gateway, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(repos.Store, h, log),
		Chat:      NewChatHandler(services.Message, gw, cfg.Chat.HistorySize, cfg.Chat.MaxHistory, log),
		WebSocket: NewWebSocketHandler(h, gw, cfg.Server.AllowedOrigins, cfg.Chat.HistoryOnConnect, log),
	}
}

// Register монтирует маршруты чата. limit применяется к REST API.
func (h *Handlers) Register(router gin.IRouter, limit gin.HandlerFunc) {
	router.GET("/health", h.Health.Check)

	v1 := router.Group("/api/v1")
	v1.Use(limit)
	{
		messages := v1.Group("/messages")
		{
			messages.GET("", h.Chat.GetMessages)
			messages.POST("", h.Chat.SendMessage)
			messages.DELETE("", h.Chat.DeleteAllMessages)
			messages.GET("/:id", h.Chat.GetMessage)
			messages.PUT("/:id", h.Chat.EditMessage)
			messages.DELETE("/:id", h.Chat.DeleteMessage)
		}
	}

	router.GET("/ws/chat", h.WebSocket.HandleChat)
}
