package service

import (
	"context"
	"errors"
	"time"

	"realtime_chat/internal/config"
	"realtime_chat/internal/repository"
	apperrors "realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"
)

type Services struct {
	User      UserService
	Message   MessageService
	RateLimit RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	users := NewUserService(repos.User, cfg.Chat.StoreTimeout, log)

	services := &Services{
		User: users,
		Message: NewMessageService(repos.Message, users, MessageServiceConfig{
			StoreTimeout: cfg.Chat.StoreTimeout,
		}, log),
		RateLimit: NewRateLimitService(repos.RateLimit, log),
	}

	log.Info("Services initialized", "store_timeout", cfg.Chat.StoreTimeout)
	return services
}

// storeNow округляет время до микросекунд: TIMESTAMPTZ хранит не точнее,
// и createdAt в рассылке должен совпадать с тем, что потом вернёт история
func storeNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// withStoreTimeout ограничивает каждый вызов хранилища по времени
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// storeError переводит ошибку репозитория в таксономию сервиса.
// NotFound пробрасывается как есть, всё остальное (включая таймаут) становится PersistenceFailure.
func storeError(log logger.Logger, op string, err error, args ...any) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		log.Warn("Not found", append([]any{"op", op}, args...)...)
		return err
	}
	log.Error("Store operation failed", append([]any{"op", op, "error", err, "timeout", apperrors.IsTimeout(err)}, args...)...)
	return apperrors.Persistence(op, err)
}
