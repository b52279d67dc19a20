package gateway

import (
	"context"
	"encoding/json"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/internal/service"
	apperrors "realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"

	"github.com/samber/lo"
)

// Session: одно подключение клиента. Send доставляет событие только ему.
type Session interface {
	ID() string
	Send(event domain.OutboundEvent) error
}

// Broadcaster доставляет событие всем подключённым клиентам.
type Broadcaster interface {
	Broadcast(ctx context.Context, event domain.OutboundEvent) error
}

type Config struct {
	HistorySize       int
	RateLimitMessages int
	RateLimitWindow   time.Duration
}

type Gateway struct {
	messages    service.MessageService
	rateLimit   service.RateLimitService
	broadcaster Broadcaster
	cfg         Config
	log         logger.Logger
}

func New(messages service.MessageService, rateLimit service.RateLimitService, broadcaster Broadcaster, cfg Config, log logger.Logger) *Gateway {
	return &Gateway{
		messages:    messages,
		rateLimit:   rateLimit,
		broadcaster: broadcaster,
		cfg:         cfg,
		log:         log,
	}
}

// SendMessage сохраняет сообщение и только после успешного сохранения рассылает его всем.
func (g *Gateway) SendMessage(ctx context.Context, userName, content string) (*domain.Message, error) {
	message, err := g.messages.CreateMessage(ctx, userName, content)
	if err != nil {
		return nil, err
	}

	event := domain.OutboundEvent{
		Type:    domain.EventReceiveMessage,
		Payload: message.Payload(),
	}
	if err := g.broadcaster.Broadcast(ctx, event); err != nil {
		// Сообщение уже сохранено и попадёт в историю; отправителю сообщаем об успехе
		g.log.Error("Message persisted but broadcast failed", "error", err, "message_id", message.ID)
	}

	return message, nil
}

// Dispatch разбирает входящий кадр и направляет его обработчику.
func (g *Gateway) Dispatch(ctx context.Context, caller Session, raw []byte) {
	var event domain.InboundEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		g.log.Debug("Malformed inbound event", "session_id", caller.ID(), "error", err)
		g.replyError(caller, "", apperrors.NewValidationError("event", "malformed JSON"))
		return
	}

	switch event.Type {
	case domain.EventSendMessage:
		var req domain.SendMessageRequest
		if len(event.Payload) == 0 || json.Unmarshal(event.Payload, &req) != nil {
			g.replyError(caller, event.RequestID, apperrors.NewValidationError("payload", "expected {userName, content}"))
			return
		}
		g.OnSendMessage(ctx, caller, event.RequestID, req)
	case domain.EventGetHistory:
		g.OnGetHistory(ctx, caller, event.RequestID)
	default:
		g.replyError(caller, event.RequestID, apperrors.NewValidationError("type", "unknown event type "+event.Type))
	}
}

// OnSendMessage работает как запрос/ответ: вызывающий всегда получает результат или ошибку,
// а рассылка происходит только при успехе.
func (g *Gateway) OnSendMessage(ctx context.Context, caller Session, requestID string, req domain.SendMessageRequest) {
	if !g.allow(ctx, caller) {
		g.replyError(caller, requestID, apperrors.ErrRateLimited)
		return
	}

	message, err := g.SendMessage(ctx, req.UserName, req.Content)
	if err != nil {
		g.log.Warn("Send message failed", "session_id", caller.ID(), "request_id", requestID, "error", err)
		g.replyError(caller, requestID, err)
		return
	}

	g.reply(caller, domain.OutboundEvent{
		Type:      domain.EventSendMessageResult,
		RequestID: requestID,
		Payload:   domain.SendMessageResult{ID: message.ID, CreatedAt: message.CreatedAt},
	})
}

// OnGetHistory отправляет снимок последних сообщений только вызывающему, в порядке сервиса.
func (g *Gateway) OnGetHistory(ctx context.Context, caller Session, requestID string) {
	messages, err := g.messages.GetRecentMessages(ctx, g.cfg.HistorySize)
	if err != nil {
		g.log.Warn("Get history failed", "session_id", caller.ID(), "error", err)
		g.replyError(caller, requestID, err)
		return
	}

	history := lo.Map(messages, func(m *domain.Message, _ int) domain.MessagePayload {
		return m.Payload()
	})
	g.reply(caller, domain.OutboundEvent{
		Type:      domain.EventReceiveHistory,
		RequestID: requestID,
		Payload:   history,
	})
}

func (g *Gateway) allow(ctx context.Context, caller Session) bool {
	if g.rateLimit == nil {
		return true
	}
	allowed, _, err := g.rateLimit.Allow(ctx, "ws:"+caller.ID(), g.cfg.RateLimitMessages, g.cfg.RateLimitWindow)
	if err != nil {
		// недоступность Redis не должна останавливать чат
		g.log.Warn("Rate limit check failed, allowing", "session_id", caller.ID(), "error", err)
		return true
	}
	return allowed
}

func (g *Gateway) replyError(caller Session, requestID string, err error) {
	code := apperrors.CodeFromError(err)
	message := err.Error()
	if code == apperrors.CodePersistenceFailure {
		message = "the message store is unavailable, please retry"
	}

	g.reply(caller, domain.OutboundEvent{
		Type:      domain.EventError,
		RequestID: requestID,
		Error: &domain.ErrorPayload{
			Code:    code,
			Field:   apperrors.FieldFromError(err),
			Message: message,
		},
	})
}

func (g *Gateway) reply(caller Session, event domain.OutboundEvent) {
	if err := caller.Send(event); err != nil {
		g.log.Warn("Failed to reply to client", "session_id", caller.ID(), "event", event.Type, "error", err)
	}
}
