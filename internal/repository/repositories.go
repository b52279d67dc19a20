package repository

import (
	"context"

	"realtime_chat/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Pinger проверяет доступность хранилища (health check).
type Pinger interface {
	Ping(ctx context.Context) error
}

type Repositories struct {
	Store     Pinger
	User      UserRepository
	Message   MessageRepository
	RateLimit RateLimitRepository
}

// NewRepositories собирает репозитории поверх PostgreSQL. rdb может быть nil,
// тогда RateLimit не инициализируется.
func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	repos := &Repositories{
		Store:   db,
		User:    NewUserRepository(db, log),
		Message: NewMessageRepository(db, log),
	}
	repos.RateLimit = newRateLimit(rdb, log)

	log.Info("PostgreSQL repositories initialized")
	return repos
}

func NewMemoryRepositories(rdb *redis.Client, log logger.Logger) *Repositories {
	store := NewMemoryStore()
	repos := &Repositories{
		Store:   store,
		User:    store.Users(),
		Message: store.Messages(),
	}
	repos.RateLimit = newRateLimit(rdb, log)

	log.Warn("In-memory repositories initialized, data will not survive a restart")
	return repos
}

func newRateLimit(rdb *redis.Client, log logger.Logger) RateLimitRepository {
	if rdb == nil {
		log.Warn("Redis is disabled, rate limiting is off")
		return nil
	}
	return NewRateLimitRepository(rdb, log)
}
