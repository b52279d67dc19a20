package repository

import (
	"context"
	"errors"
	"fmt"

	"realtime_chat/internal/domain"
	apperrors "realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:generate mockgen -destination=mocks/mock_repository.go -package=mocks realtime_chat/internal/repository UserRepository,MessageRepository,RateLimitRepository

type MessageRepository interface {
	// Create сохраняет сообщение; отправитель уже должен существовать
	Create(ctx context.Context, message *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// GetRecent возвращает не более count сообщений, от новых к старым
	GetRecent(ctx context.Context, count int) ([]*domain.Message, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) error
	DeleteByID(ctx context.Context, id uuid.UUID) error
	DeleteAll(ctx context.Context) (int64, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, content, created_at, sender_id)
		VALUES ($1, $2, $3, $4)
		RETURNING seq
	`

	err := r.db.QueryRow(ctx, query,
		message.ID, message.Content, message.CreatedAt, message.SenderID,
	).Scan(&message.Seq)

	if err != nil {
		r.log.Error("Failed to create message", "error", err, "message_id", message.ID, "sender_id", message.SenderID)
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.seq, m.content, m.created_at, m.sender_id, u.name
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.id = $1
	`

	message := &domain.Message{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&message.ID, &message.Seq, &message.Content, &message.CreatedAt, &message.SenderID, &message.SenderName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", id)
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return message, nil
}

func (r *messageRepository) GetRecent(ctx context.Context, count int) ([]*domain.Message, error) {
	query := `
		SELECT m.id, m.seq, m.content, m.created_at, m.sender_id, u.name
		FROM messages m
		JOIN users u ON u.id = m.sender_id
		ORDER BY m.created_at DESC, m.seq DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, count)
	if err != nil {
		r.log.Error("Failed to get messages", "error", err)
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, count)
	for rows.Next() {
		message := &domain.Message{}
		err := rows.Scan(
			&message.ID, &message.Seq, &message.Content, &message.CreatedAt, &message.SenderID, &message.SenderName,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("Failed to iterate messages", "error", err)
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	query := `
		UPDATE messages
		SET content = $2
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, content)
	if err != nil {
		r.log.Error("Failed to update message", "error", err, "message_id", id)
		return fmt.Errorf("failed to update message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *messageRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete message", "error", err, "message_id", id)
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *messageRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM messages`)
	if err != nil {
		r.log.Error("Failed to delete all messages", "error", err)
		return 0, fmt.Errorf("failed to delete messages: %w", err)
	}

	return tag.RowsAffected(), nil
}
