package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"realtime_chat/internal/domain"
	apperrors "realtime_chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, users UserRepository, name string) *domain.User {
	t.Helper()
	user := domain.NewUser(name, time.Now().UTC())
	require.NoError(t, users.Create(context.Background(), user))
	return user
}

func TestMemoryUserRepository(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	users := store.Users()

	t.Run("should find a created user by name and id", func(t *testing.T) {
		req := require.New(t)
		alice := seedUser(t, users, "alice")

		byName, err := users.GetByName(ctx, "alice")
		req.NoError(err)
		req.Equal(*alice, *byName)

		byID, err := users.GetByID(ctx, alice.ID)
		req.NoError(err)
		req.Equal("alice", byID.Name)
	})

	t.Run("should reject a duplicate name", func(t *testing.T) {
		err := users.Create(ctx, domain.NewUser("alice", time.Now()))
		require.ErrorIs(t, err, apperrors.ErrUserAlreadyExists)
	})

	t.Run("should return not found for an unknown name", func(t *testing.T) {
		_, err := users.GetByName(ctx, "nobody")
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("should let exactly one concurrent create win", func(t *testing.T) {
		req := require.New(t)
		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- users.Create(ctx, domain.NewUser("carol", time.Now()))
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			req.ErrorIs(err, apperrors.ErrUserAlreadyExists)
		}
		req.Equal(1, succeeded)
	})
}

func TestMemoryMessageRepository_GetRecent(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	store := NewMemoryStore()
	alice := seedUser(t, store.Users(), "alice")
	bob := seedUser(t, store.Users(), "bob")
	messages := store.Messages()

	t1 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hi := domain.NewMessage(alice, "hi", t1)
	yo := domain.NewMessage(bob, "yo", t1.Add(time.Second))
	// одинаковое время: порядок определяется seq
	tie := domain.NewMessage(alice, "same time", t1.Add(time.Second))
	for _, m := range []*domain.Message{hi, yo, tie} {
		req.NoError(messages.Create(ctx, m))
	}
	req.Less(yo.Seq, tie.Seq)

	recent, err := messages.GetRecent(ctx, 10)
	req.NoError(err)
	req.Len(recent, 3)
	req.Equal(tie.ID, recent[0].ID)
	req.Equal(yo.ID, recent[1].ID)
	req.Equal("bob", recent[1].SenderName)
	req.Equal(hi.ID, recent[2].ID)
	req.Equal("alice", recent[2].SenderName)

	two, err := messages.GetRecent(ctx, 2)
	req.NoError(err)
	req.Len(two, 2)

	none, err := messages.GetRecent(ctx, 0)
	req.NoError(err)
	req.Empty(none)
}

func TestMemoryMessageRepository_Mutations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	alice := seedUser(t, store.Users(), "alice")
	messages := store.Messages()

	t.Run("should reject a message from an unknown sender", func(t *testing.T) {
		orphan := domain.NewMessage(&domain.User{ID: uuid.New(), Name: "ghost"}, "boo", time.Now())
		require.Error(t, messages.Create(ctx, orphan))
	})

	t.Run("should update content and keep created_at", func(t *testing.T) {
		req := require.New(t)
		m := domain.NewMessage(alice, "draft", time.Now().UTC())
		req.NoError(messages.Create(ctx, m))

		req.NoError(messages.UpdateContent(ctx, m.ID, "final"))
		got, err := messages.GetByID(ctx, m.ID)
		req.NoError(err)
		req.Equal("final", got.Content)
		req.True(m.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("should return not found for unknown ids", func(t *testing.T) {
		req := require.New(t)
		req.ErrorIs(messages.UpdateContent(ctx, uuid.New(), "x"), apperrors.ErrNotFound)
		req.ErrorIs(messages.DeleteByID(ctx, uuid.New()), apperrors.ErrNotFound)
		_, err := messages.GetByID(ctx, uuid.New())
		req.ErrorIs(err, apperrors.ErrNotFound)
	})

	t.Run("should delete all and report the count", func(t *testing.T) {
		req := require.New(t)
		req.NoError(messages.Create(ctx, domain.NewMessage(alice, "one more", time.Now())))

		before, err := messages.GetRecent(ctx, 100)
		req.NoError(err)

		n, err := messages.DeleteAll(ctx)
		req.NoError(err)
		req.Equal(int64(len(before)), n)

		after, err := messages.GetRecent(ctx, 50)
		req.NoError(err)
		req.Empty(after)

		// пользователи остаются
		_, err = store.Users().GetByName(ctx, "alice")
		req.NoError(err)
	})

	t.Run("should honour a cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := messages.GetRecent(cancelled, 1)
		require.ErrorIs(t, err, context.Canceled)
	})
}
