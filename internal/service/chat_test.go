package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/internal/repository"
	"realtime_chat/internal/repository/mocks"
	apperrors "realtime_chat/pkg/errors"
	"realtime_chat/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryMessageService(t *testing.T) (MessageService, *repository.MemoryStore, *fakeClock) {
	t.Helper()
	log := logger.NewNop()
	store := repository.NewMemoryStore()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	users := NewUserService(store.Users(), time.Second, log)
	users.(*userService).now = clock.Now
	svc := NewMessageService(store.Messages(), users, MessageServiceConfig{
		StoreTimeout: time.Second,
	}, log)
	svc.(*messageService).now = clock.Now

	return svc, store, clock
}

func TestMessageService_CreateThenGet(t *testing.T) {
	req := require.New(t)
	svc, store, _ := newMemoryMessageService(t)
	ctx := context.Background()

	created, err := svc.CreateMessage(ctx, "alice", "hello there")
	req.NoError(err)
	req.Equal("alice", created.SenderName)

	got, err := svc.GetMessageByID(ctx, created.ID)
	req.NoError(err)
	req.Equal("hello there", got.Content)

	sender, err := store.Users().GetByID(ctx, got.SenderID)
	req.NoError(err)
	req.Equal("alice", sender.Name)
}

func TestMessageService_ReusesSenderForSameName(t *testing.T) {
	req := require.New(t)
	svc, _, _ := newMemoryMessageService(t)
	ctx := context.Background()

	first, err := svc.CreateMessage(ctx, "alice", "one")
	req.NoError(err)
	second, err := svc.CreateMessage(ctx, " alice ", "two")
	req.NoError(err)
	req.Equal(first.SenderID, second.SenderID)
}

func TestMessageService_RecentMessagesScenario(t *testing.T) {
	req := require.New(t)
	svc, _, clock := newMemoryMessageService(t)
	ctx := context.Background()

	t1 := clock.Now()
	_, err := svc.CreateMessage(ctx, "alice", "hi")
	req.NoError(err)
	clock.Advance(time.Second)
	t2 := clock.Now()
	_, err = svc.CreateMessage(ctx, "bob", "yo")
	req.NoError(err)

	recent, err := svc.GetRecentMessages(ctx, 10)
	req.NoError(err)
	req.Len(recent, 2)
	req.Equal(domain.MessagePayload{UserName: "bob", Content: "yo", CreatedAt: t2}, recent[0].Payload())
	req.Equal(domain.MessagePayload{UserName: "alice", Content: "hi", CreatedAt: t1}, recent[1].Payload())

	two, err := svc.GetRecentMessages(ctx, 2)
	req.NoError(err)
	req.Equal("yo", two[0].Content)
	req.Equal("hi", two[1].Content)
}

func TestMessageService_GetRecentMessagesBounds(t *testing.T) {
	svc, _, clock := newMemoryMessageService(t)
	ctx := context.Background()

	t.Run("should return an empty snapshot when nothing is stored", func(t *testing.T) {
		req := require.New(t)
		recent, err := svc.GetRecentMessages(ctx, 50)
		req.NoError(err)
		req.NotNil(recent)
		req.Empty(recent)
	})

	for i := 0; i < 3; i++ {
		_, err := svc.CreateMessage(ctx, "alice", "msg")
		require.NoError(t, err)
		clock.Advance(time.Millisecond)
	}

	t.Run("should return an empty sequence for zero", func(t *testing.T) {
		req := require.New(t)
		recent, err := svc.GetRecentMessages(ctx, 0)
		req.NoError(err)
		req.Empty(recent)
	})

	t.Run("should return everything when count exceeds the total", func(t *testing.T) {
		req := require.New(t)
		recent, err := svc.GetRecentMessages(ctx, 100)
		req.NoError(err)
		req.Len(recent, 3)
		for i := 1; i < len(recent); i++ {
			req.True(recent[i-1].CreatedAt.After(recent[i].CreatedAt))
		}
	})
}

func TestMessageService_GetRecentMessagesLargeHistory(t *testing.T) {
	req := require.New(t)
	svc, _, clock := newMemoryMessageService(t)
	ctx := context.Background()

	const stored = 600
	for i := 0; i < stored; i++ {
		_, err := svc.CreateMessage(ctx, "alice", "msg")
		req.NoError(err)
		clock.Advance(time.Millisecond)
	}

	recent, err := svc.GetRecentMessages(ctx, 1000)
	req.NoError(err)
	req.Len(recent, stored)
}

func TestMessageService_CreatedAtMatchesStorePrecision(t *testing.T) {
	req := require.New(t)
	log := logger.NewNop()
	store := repository.NewMemoryStore()
	svc := NewMessageService(store.Messages(), NewUserService(store.Users(), time.Second, log), MessageServiceConfig{
		StoreTimeout: time.Second,
	}, log)

	created, err := svc.CreateMessage(context.Background(), "alice", "hi")
	req.NoError(err)
	req.Zero(created.CreatedAt.Nanosecond() % int(time.Microsecond))

	got, err := svc.GetMessageByID(context.Background(), created.ID)
	req.NoError(err)
	req.True(created.CreatedAt.Equal(got.CreatedAt))
}

func TestMessageService_UpdateMessageContent(t *testing.T) {
	svc, _, clock := newMemoryMessageService(t)
	ctx := context.Background()

	t.Run("should fail with not found for an unknown id", func(t *testing.T) {
		err := svc.UpdateMessageContent(ctx, uuid.New(), "new")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("should replace content and keep created_at", func(t *testing.T) {
		req := require.New(t)
		created, err := svc.CreateMessage(ctx, "alice", "old")
		req.NoError(err)
		clock.Advance(time.Hour)

		req.NoError(svc.UpdateMessageContent(ctx, created.ID, "new"))

		got, err := svc.GetMessageByID(ctx, created.ID)
		req.NoError(err)
		req.Equal("new", got.Content)
		req.True(created.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("should reject blank content", func(t *testing.T) {
		err := svc.UpdateMessageContent(ctx, uuid.New(), " \t ")
		require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		require.Equal(t, "content", apperrors.FieldFromError(err))
	})
}

func TestMessageService_Delete(t *testing.T) {
	svc, _, _ := newMemoryMessageService(t)
	ctx := context.Background()

	t.Run("should delete by id and then report not found", func(t *testing.T) {
		req := require.New(t)
		created, err := svc.CreateMessage(ctx, "alice", "bye")
		req.NoError(err)

		req.NoError(svc.DeleteMessageByID(ctx, created.ID))
		req.ErrorIs(svc.DeleteMessageByID(ctx, created.ID), apperrors.ErrNotFound)
		_, err = svc.GetMessageByID(ctx, created.ID)
		req.ErrorIs(err, apperrors.ErrNotFound)
	})

	t.Run("should delete all and return the removed count", func(t *testing.T) {
		req := require.New(t)
		for _, name := range []string{"alice", "bob", "carol"} {
			_, err := svc.CreateMessage(ctx, name, "hi")
			req.NoError(err)
		}

		n, err := svc.DeleteAllMessages(ctx)
		req.NoError(err)
		req.Equal(int64(3), n)

		recent, err := svc.GetRecentMessages(ctx, 50)
		req.NoError(err)
		req.Empty(recent)
	})
}

func TestMessageService_CreateMessageValidation(t *testing.T) {
	svc, store, _ := newMemoryMessageService(t)
	ctx := context.Background()

	cases := []struct {
		name     string
		userName string
		content  string
		field    string
	}{
		{"empty user name", "", "hi", "userName"},
		{"blank user name", "   ", "hi", "userName"},
		{"both empty names user first", "", "", "userName"},
		{"empty content", "alice", "", "content"},
		{"blank content", "alice", " \n ", "content"},
		{"user name too long", strings.Repeat("a", 33), "hi", "userName"},
		{"content too long", "alice", strings.Repeat("a", domain.MaxMessageContentLength+1), "content"},
		{"NUL byte in content", "alice", "hi\x00there", "content"},
		{"NUL byte in user name", "al\x00ice", "hi", "userName"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			_, err := svc.CreateMessage(ctx, tc.userName, tc.content)
			req.ErrorIs(err, apperrors.ErrInvalidArgument)
			req.Equal(tc.field, apperrors.FieldFromError(err))
		})
	}

	req := require.New(t)
	recent, err := svc.GetRecentMessages(ctx, 50)
	req.NoError(err)
	req.Empty(recent)
	_, err = store.Users().GetByName(ctx, "alice")
	req.ErrorIs(err, apperrors.ErrNotFound)
}

func TestMessageService_StoreFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockMessages := mocks.NewMockMessageRepository(ctrl)
	mockUsers := mocks.NewMockUserRepository(ctrl)
	log := logger.NewNop()
	svc := NewMessageService(mockMessages, NewUserService(mockUsers, time.Second, log), MessageServiceConfig{
		StoreTimeout: 20 * time.Millisecond,
	}, log)
	ctx := context.Background()
	alice := domain.NewUser("alice", time.Now())

	t.Run("should surface insert failure as persistence failure", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().GetByName(gomock.Any(), "alice").Return(alice, nil)
		mockMessages.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full")).Times(1)

		msg, err := svc.CreateMessage(ctx, "alice", "hi")
		req.Nil(msg)
		req.ErrorIs(err, apperrors.ErrPersistence)
	})

	t.Run("should not insert when the sender cannot be resolved", func(t *testing.T) {
		req := require.New(t)
		mockUsers.EXPECT().GetByName(gomock.Any(), "alice").Return(nil, errors.New("connection reset"))
		mockMessages.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)

		_, err := svc.CreateMessage(ctx, "alice", "hi")
		req.ErrorIs(err, apperrors.ErrPersistence)
	})

	t.Run("should treat a timeout as persistence failure", func(t *testing.T) {
		req := require.New(t)
		mockMessages.EXPECT().
			GetByID(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, _ uuid.UUID) (*domain.Message, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			})

		_, err := svc.GetMessageByID(ctx, uuid.New())
		req.ErrorIs(err, apperrors.ErrPersistence)
		req.True(apperrors.IsTimeout(err))
		req.NotErrorIs(err, apperrors.ErrNotFound)
	})

	t.Run("should query the store for exactly the requested count", func(t *testing.T) {
		req := require.New(t)
		mockMessages.EXPECT().GetRecent(gomock.Any(), 10_000).Return(nil, nil).Times(1)

		recent, err := svc.GetRecentMessages(ctx, 10_000)
		req.NoError(err)
		req.NotNil(recent)
		req.Empty(recent)
	})

	t.Run("should not query the store for non-positive counts", func(t *testing.T) {
		mockMessages.EXPECT().GetRecent(gomock.Any(), gomock.Any()).Times(0)

		recent, err := svc.GetRecentMessages(ctx, -1)
		require.NoError(t, err)
		require.Empty(t, recent)
	})

	t.Run("should pass through not found on delete", func(t *testing.T) {
		req := require.New(t)
		id := uuid.New()
		mockMessages.EXPECT().DeleteByID(gomock.Any(), id).Return(apperrors.ErrNotFound)

		err := svc.DeleteMessageByID(ctx, id)
		req.ErrorIs(err, apperrors.ErrNotFound)
		req.Contains(err.Error(), id.String())
	})

	t.Run("should surface delete all failure", func(t *testing.T) {
		mockMessages.EXPECT().DeleteAll(gomock.Any()).Return(int64(0), errors.New("boom"))

		_, err := svc.DeleteAllMessages(ctx)
		require.ErrorIs(t, err, apperrors.ErrPersistence)
	})
}
