package repository

import (
	"context"
	"fmt"
	"time"

	"realtime_chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const RateLimitKeyPrefix = "ratelimit:%s"

type RateLimitRepository interface {
	// Increment увеличивает счётчик окна и возвращает его новое значение
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

type rateLimitRepository struct {
	redis *redis.Client
	log   logger.Logger
}

func NewRateLimitRepository(redis *redis.Client, log logger.Logger) RateLimitRepository {
	return &rateLimitRepository{redis: redis, log: log}
}

func (r *rateLimitRepository) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	redisKey := fmt.Sprintf(RateLimitKeyPrefix, key)

	// INCR и EXPIRE NX одной транзакцией, чтобы ключ не остался без TTL
	pipe := r.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error("Failed to increment rate limit", "error", err, "key", key)
		return 0, err
	}

	return incr.Val(), nil
}
