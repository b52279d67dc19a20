package hub

import (
	"context"
	"testing"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/pkg/logger"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// unreachableRedis указывает на порт, где никто не слушает
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestRedisRelay_DeliversLocallyWithoutSubscription(t *testing.T) {
	h := startHub(t, testConfig())
	relay := NewRedisRelay(unreachableRedis(t), "chat:test", h, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	t.Run("should report a failed subscription", func(t *testing.T) {
		require.Error(t, relay.Run(ctx))
		require.False(t, relay.subscribed.Load())
	})

	t.Run("should still reach local clients after the relay stopped", func(t *testing.T) {
		client := NewClient(h, nil, "local", nil)
		require.NoError(t, h.Register(client))
		waitForClients(t, h, 1)

		require.NoError(t, relay.Broadcast(ctx, domain.OutboundEvent{Type: domain.EventReceiveMessage}))

		select {
		case payload := <-client.send:
			require.Contains(t, string(payload), domain.EventReceiveMessage)
		case <-time.After(2 * time.Second):
			t.Fatal("broadcast did not reach the local client")
		}
	})
}
