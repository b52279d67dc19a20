package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/internal/repository"
	"realtime_chat/pkg/logger"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/mock_service.go -package=mocks realtime_chat/internal/service MessageService,UserService,RateLimitService

type MessageService interface {
	CreateMessage(ctx context.Context, userName, content string) (*domain.Message, error)
	// GetRecentMessages возвращает до count сообщений от новых к старым; пустой срез, если сообщений нет
	GetRecentMessages(ctx context.Context, count int) ([]*domain.Message, error)
	GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// UpdateMessageContent меняет только content, created_at сохраняется
	UpdateMessageContent(ctx context.Context, id uuid.UUID, content string) error
	DeleteMessageByID(ctx context.Context, id uuid.UUID) error
	DeleteAllMessages(ctx context.Context) (int64, error)
}

type MessageServiceConfig struct {
	StoreTimeout time.Duration
}

type messageService struct {
	messageRepo repository.MessageRepository
	users       UserService
	cfg         MessageServiceConfig
	now         func() time.Time
	log         logger.Logger
}

func NewMessageService(messageRepo repository.MessageRepository, users UserService, cfg MessageServiceConfig, log logger.Logger) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		users:       users,
		cfg:         cfg,
		now:         storeNow,
		log:         log,
	}
}

func (s *messageService) CreateMessage(ctx context.Context, userName, content string) (*domain.Message, error) {
	input := createMessageInput{
		UserName: strings.TrimSpace(userName),
		Content:  content,
	}
	if err := validateInput(input); err != nil {
		s.log.Warn("Rejected message", "error", err, "user", input.UserName)
		return nil, err
	}

	sender, err := s.users.ResolveOrCreate(ctx, input.UserName)
	if err != nil {
		s.log.Error("Failed to resolve sender", "error", err, "user", input.UserName)
		return nil, err
	}

	message := domain.NewMessage(sender, input.Content, s.now())

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.messageRepo.Create(storeCtx, message); err != nil {
		return nil, storeError(s.log, "insert message", err, "message_id", message.ID, "sender_id", sender.ID)
	}

	s.log.Debug("Message created", "message_id", message.ID, "sender_id", sender.ID)
	return message, nil
}

func (s *messageService) GetRecentMessages(ctx context.Context, count int) ([]*domain.Message, error) {
	if count <= 0 {
		return []*domain.Message{}, nil
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	messages, err := s.messageRepo.GetRecent(storeCtx, count)
	if err != nil {
		return nil, storeError(s.log, "recent messages", err, "count", count)
	}
	if messages == nil {
		messages = []*domain.Message{}
	}

	return messages, nil
}

func (s *messageService) GetMessageByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	message, err := s.messageRepo.GetByID(storeCtx, id)
	if err != nil {
		return nil, storeError(s.log, "get message", wrapMessageID(err, id), "message_id", id)
	}
	return message, nil
}

func (s *messageService) UpdateMessageContent(ctx context.Context, id uuid.UUID, content string) error {
	if err := validateInput(updateContentInput{Content: content}); err != nil {
		s.log.Warn("Rejected message update", "error", err, "message_id", id)
		return err
	}

	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if err := s.messageRepo.UpdateContent(storeCtx, id, content); err != nil {
		return storeError(s.log, "update message", wrapMessageID(err, id), "message_id", id)
	}

	s.log.Info("Message updated", "message_id", id)
	return nil
}

func (s *messageService) DeleteMessageByID(ctx context.Context, id uuid.UUID) error {
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	if err := s.messageRepo.DeleteByID(storeCtx, id); err != nil {
		return storeError(s.log, "delete message", wrapMessageID(err, id), "message_id", id)
	}

	s.log.Info("Message deleted", "message_id", id)
	return nil
}

func (s *messageService) DeleteAllMessages(ctx context.Context) (int64, error) {
	storeCtx, cancel := withStoreTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	n, err := s.messageRepo.DeleteAll(storeCtx)
	if err != nil {
		return 0, storeError(s.log, "delete all messages", err)
	}

	s.log.Info("All messages deleted", "count", n)
	return n, nil
}

func wrapMessageID(err error, id uuid.UUID) error {
	return fmt.Errorf("message %s: %w", id, err)
}
