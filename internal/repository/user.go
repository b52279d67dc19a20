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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Код PostgreSQL для unique_violation
const pgUniqueViolation = "23505"

type UserRepository interface {
	// Create возвращает ErrUserAlreadyExists, если имя уже занято
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
}

type userRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewUserRepository(db *pgxpool.Pool, log logger.Logger) UserRepository {
	return &userRepository{db: db, log: log}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, name, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.Exec(ctx, query, user.ID, user.Name, user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.log.Warn("User already exists (unique violation)", "name", user.Name, "constraint", pgErr.ConstraintName)
			return apperrors.ErrUserAlreadyExists
		}

		r.log.Error("Failed to create user", "error", err, "name", user.Name)
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `
		SELECT id, name, created_at
		FROM users
		WHERE id = $1
	`

	return r.getOne(ctx, query, id)
}

func (r *userRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	query := `
		SELECT id, name, created_at
		FROM users
		WHERE name = $1
	`

	return r.getOne(ctx, query, name)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	user := &domain.User{}
	err := r.db.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Name, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get user", "error", err, "key", arg)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}
