package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Входящие события от клиента
const (
	EventSendMessage = "send-message"
	EventGetHistory  = "get-history"
)

// Исходящие события
const (
	EventReceiveMessage    = "receive-message"
	EventReceiveHistory    = "receive-history"
	EventSendMessageResult = "send-message-result"
	EventError             = "error"
)

type InboundEvent struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type SendMessageRequest struct {
	UserName string `json:"userName"`
	Content  string `json:"content"`
}

type OutboundEvent struct {
	Type      string        `json:"type"`
	RequestID string        `json:"requestId,omitempty"`
	Payload   any           `json:"payload,omitempty"`
	Error     *ErrorPayload `json:"error,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

type SendMessageResult struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}
