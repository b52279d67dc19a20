package handler

import (
	"context"
	"net/http"
	"time"

	"realtime_chat/internal/hub"
	"realtime_chat/internal/repository"
	"realtime_chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	store repository.Pinger
	hub   *hub.Hub
	log   logger.Logger
}

func NewHealthHandler(store repository.Pinger, h *hub.Hub, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		store: store,
		hub:   h,
		log:   log,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unavailable",
			"service": "realtime-chat",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "realtime-chat",
		"clients": h.hub.ClientCount(),
	})
}
