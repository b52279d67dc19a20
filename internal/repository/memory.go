package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"realtime_chat/internal/domain"
	apperrors "realtime_chat/pkg/errors"

	"github.com/google/uuid"
)

// MemoryStore хранит данные в памяти, для STORAGE_DRIVER=memory и тестов.
// Повторяет контракт Postgres: уникальное имя пользователя, внешний ключ
// sender_id и порядок (created_at DESC, seq DESC).
type MemoryStore struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]domain.User
	usersByName map[string]uuid.UUID
	messages    map[uuid.UUID]domain.Message
	seq         int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[uuid.UUID]domain.User),
		usersByName: make(map[string]uuid.UUID),
		messages:    make(map[uuid.UUID]domain.Message),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Users() UserRepository {
	return &memoryUserRepository{store: s}
}

func (s *MemoryStore) Messages() MessageRepository {
	return &memoryMessageRepository{store: s}
}

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[user.Name]; exists {
		return apperrors.ErrUserAlreadyExists
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("failed to create user: duplicate id %s", user.ID)
	}
	s.users[user.ID] = *user
	s.usersByName[user.Name] = user.ID
	return nil
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &user, nil
}

func (r *memoryUserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.usersByName[name]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	user := s.users[id]
	return &user, nil
}

type memoryMessageRepository struct {
	store *MemoryStore
}

func (r *memoryMessageRepository) Create(ctx context.Context, message *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[message.SenderID]; !ok {
		return fmt.Errorf("failed to create message: sender %s does not exist", message.SenderID)
	}
	if _, exists := s.messages[message.ID]; exists {
		return fmt.Errorf("failed to create message: duplicate id %s", message.ID)
	}
	s.seq++
	message.Seq = s.seq
	stored := *message
	stored.SenderName = ""
	s.messages[message.ID] = stored
	return nil
}

func (r *memoryMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	message, ok := s.messages[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return s.withSender(message), nil
}

func (r *memoryMessageRepository) GetRecent(ctx context.Context, count int) ([]*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]domain.Message, 0, len(s.messages))
	for _, m := range s.messages {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Seq > all[j].Seq
	})

	if count < 0 {
		count = 0
	}
	if count > len(all) {
		count = len(all)
	}
	messages := make([]*domain.Message, 0, count)
	for _, m := range all[:count] {
		messages = append(messages, s.withSender(m))
	}
	return messages, nil
}

func (r *memoryMessageRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	message, ok := s.messages[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	message.Content = content
	s.messages[id] = message
	return nil
}

func (r *memoryMessageRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.messages, id)
	return nil
}

func (r *memoryMessageRepository) DeleteAll(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.messages))
	s.messages = make(map[uuid.UUID]domain.Message)
	return n, nil
}

// withSender вызывается под s.mu
func (s *MemoryStore) withSender(m domain.Message) *domain.Message {
	if user, ok := s.users[m.SenderID]; ok {
		m.SenderName = user.Name
	}
	return &m
}
