package service

import (
	"context"
	"time"

	"realtime_chat/internal/repository"
	"realtime_chat/pkg/logger"
)

type RateLimitService interface {
	// Allow учитывает одно событие для key и сообщает, укладывается ли оно в limit за window
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

type rateLimitService struct {
	rateLimitRepo repository.RateLimitRepository
	log           logger.Logger
}

// NewRateLimitService возвращает no-op реализацию, если репозиторий не настроен (Redis выключен)
func NewRateLimitService(rateLimitRepo repository.RateLimitRepository, log logger.Logger) RateLimitService {
	if rateLimitRepo == nil {
		return noopRateLimitService{}
	}
	return &rateLimitService{
		rateLimitRepo: rateLimitRepo,
		log:           log,
	}
}

func (s *rateLimitService) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	if limit <= 0 {
		return true, 0, nil
	}

	count, err := s.rateLimitRepo.Increment(ctx, key, window)
	if err != nil {
		return false, 0, err
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if count > int64(limit) {
		s.log.Debug("Rate limit exceeded", "key", key, "count", count, "limit", limit)
		return false, 0, nil
	}
	return true, remaining, nil
}

type noopRateLimitService struct{}

func (noopRateLimitService) Allow(context.Context, string, int, time.Duration) (bool, int, error) {
	return true, 0, nil
}
