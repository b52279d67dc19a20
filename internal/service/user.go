package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/internal/repository"
	apperrors "realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"

	"golang.org/x/sync/singleflight"
)

type UserService interface {
	// ResolveOrCreate возвращает пользователя с данным именем, создавая его при первом обращении
	ResolveOrCreate(ctx context.Context, name string) (*domain.User, error)
}

type userService struct {
	userRepo     repository.UserRepository
	storeTimeout time.Duration
	group        singleflight.Group
	now          func() time.Time
	log          logger.Logger
}

func NewUserService(userRepo repository.UserRepository, storeTimeout time.Duration, log logger.Logger) UserService {
	return &userService{
		userRepo:     userRepo,
		storeTimeout: storeTimeout,
		now:          storeNow,
		log:          log,
	}
}

func (s *userService) ResolveOrCreate(ctx context.Context, name string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	if err := validateInput(struct {
		UserName string `json:"userName" validate:"notblank,nonul,max=32"`
	}{name}); err != nil {
		return nil, err
	}

	// Параллельные запросы с одним именем внутри процесса схлопываются в один.
	// Отмена первого вызывающего не должна ронять остальных, поэтому WithoutCancel;
	// каждый вызов хранилища всё равно ограничен storeTimeout.
	v, err, _ := s.group.Do(name, func() (any, error) {
		return s.resolveOrCreate(context.WithoutCancel(ctx), name)
	})
	if err != nil {
		return nil, err
	}
	user := *v.(*domain.User)
	return &user, nil
}

func (s *userService) resolveOrCreate(ctx context.Context, name string) (*domain.User, error) {
	user, err := s.getByName(ctx, name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, storeError(s.log, "lookup user", err, "name", name)
	}

	user = domain.NewUser(name, s.now())
	err = s.create(ctx, user)
	switch {
	case err == nil:
		s.log.Info("User created", "user_id", user.ID, "name", name)
		return user, nil
	case errors.Is(err, apperrors.ErrUserAlreadyExists):
		// Другой экземпляр успел создать пользователя: повторяем поиск один раз
		s.log.Info("User created concurrently, retrying lookup", "name", name)
		winner, err := s.getByName(ctx, name)
		if err != nil {
			// здесь NotFound означает сбой хранилища, а не отсутствие пользователя
			if errors.Is(err, apperrors.ErrNotFound) {
				err = fmt.Errorf("user %q not visible after unique conflict", name)
			}
			return nil, storeError(s.log, "lookup user after conflict", err, "name", name)
		}
		return winner, nil
	default:
		return nil, storeError(s.log, "create user", err, "name", name)
	}
}

func (s *userService) getByName(ctx context.Context, name string) (*domain.User, error) {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.userRepo.GetByName(ctx, name)
}

func (s *userService) create(ctx context.Context, user *domain.User) error {
	ctx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.userRepo.Create(ctx, user)
}
