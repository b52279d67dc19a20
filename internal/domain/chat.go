package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxMessageContentLength = 4000
)

// Message: сообщение чата. Seq назначается хранилищем и используется
// только для детерминированного порядка при равных CreatedAt.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Seq        int64     `json:"-"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	SenderID   uuid.UUID `json:"sender_id"`
	SenderName string    `json:"sender_name,omitempty"`
}

func NewMessage(sender *User, content string, now time.Time) *Message {
	return &Message{
		ID:         uuid.New(),
		Content:    content,
		CreatedAt:  now,
		SenderID:   sender.ID,
		SenderName: sender.Name,
	}
}

// MessagePayload: форма сообщения для receive-message и receive-history.
type MessagePayload struct {
	UserName  string    `json:"userName"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m *Message) Payload() MessagePayload {
	return MessagePayload{
		UserName:  m.SenderName,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
