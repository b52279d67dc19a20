package handler

import (
	"net/http"
	"strconv"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/internal/gateway"
	"realtime_chat/internal/service"
	"realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type ChatHandler struct {
	messageService service.MessageService
	gateway        *gateway.Gateway
	historySize    int
	maxHistory     int
	log            logger.Logger
}

func NewChatHandler(messageService service.MessageService, gw *gateway.Gateway, historySize, maxHistory int, log logger.Logger) *ChatHandler {
	return &ChatHandler{
		messageService: messageService,
		gateway:        gw,
		historySize:    historySize,
		maxHistory:     maxHistory,
		log:            log,
	}
}

type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	SenderID  uuid.UUID `json:"senderId"`
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func toMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		UserName:  m.SenderName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

func (h *ChatHandler) GetMessages(c *gin.Context) {
	count := h.historySize
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			_ = c.Error(errors.NewValidationError("count", "must be an integer"))
			return
		}
		count = n
	}
	// ограничение размера выборки для REST API
	if h.maxHistory > 0 && count > h.maxHistory {
		count = h.maxHistory
	}

	messages, err := h.messageService.GetRecentMessages(c.Request.Context(), count)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(messages, func(m *domain.Message, _ int) MessageResponse {
		return toMessageResponse(m)
	}))
}

func (h *ChatHandler) GetMessage(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	message, err := h.messageService.GetMessageByID(c.Request.Context(), messageID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, toMessageResponse(message))
}

type SendMessageRequest struct {
	UserName string `json:"userName"`
	Content  string `json:"content"`
}

// SendMessage идёт через gateway, чтобы сообщение получили и WebSocket-клиенты.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", "expected JSON {userName, content}"))
		return
	}

	message, err := h.gateway.SendMessage(c.Request.Context(), req.UserName, req.Content)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, toMessageResponse(message))
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

func (h *ChatHandler) EditMessage(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("body", "expected JSON {content}"))
		return
	}

	if err := h.messageService.UpdateMessageContent(c.Request.Context(), messageID, req.Content); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message updated"})
}

func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	messageID, ok := parseMessageID(c)
	if !ok {
		return
	}

	if err := h.messageService.DeleteMessageByID(c.Request.Context(), messageID); err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}

func (h *ChatHandler) DeleteAllMessages(c *gin.Context) {
	deleted, err := h.messageService.DeleteAllMessages(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.log.Info("All messages deleted", "deleted", deleted, "client_ip", c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func parseMessageID(c *gin.Context) (uuid.UUID, bool) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(errors.NewValidationError("id", "invalid message ID"))
		return uuid.Nil, false
	}
	return messageID, true
}
