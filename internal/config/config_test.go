package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	for _, key := range []string{"POSTGRES_PORT", "POSTGRES_DB", "POSTGRES_USER", "POSTGRES_SSLMODE",
		"CHAT_HISTORY_SIZE", "CHAT_MAX_HISTORY", "CHAT_STORE_TIMEOUT", "CHAT_HISTORY_ON_CONNECT",
		"CORS_ALLOWED_ORIGINS", "WS_PONG_WAIT"} {
		t.Setenv(key, "")
	}
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PASSWORD", "s3cret")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(StorageDriverPostgres, cfg.Storage.Driver)
	req.Equal("postgres://chat:s3cret@db:5432/chat?sslmode=disable", cfg.Database.DSN)
	req.Equal(50, cfg.Chat.HistorySize)
	req.Equal(5*time.Second, cfg.Chat.StoreTimeout)
	req.True(cfg.Chat.HistoryOnConnect)
	req.Equal([]string{"*"}, cfg.Server.AllowedOrigins)
	req.Equal(54*time.Second, cfg.WebSocket.PingPeriod())
}

func TestLoad_Overrides(t *testing.T) {
	req := require.New(t)
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("CHAT_HISTORY_SIZE", "10")
	t.Setenv("CHAT_HISTORY_ON_CONNECT", "false")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	req.NoError(err)
	req.Equal(StorageDriverMemory, cfg.Storage.Driver)
	req.Equal(10, cfg.Chat.HistorySize)
	req.False(cfg.Chat.HistoryOnConnect)
	req.Equal([]string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	req.False(cfg.Redis.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("should reject unknown storage driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "sqlite")
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("should reject max history below history size", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("CHAT_HISTORY_SIZE", "100")
		t.Setenv("CHAT_MAX_HISTORY", "10")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestLoad_RedisAddr(t *testing.T) {
	t.Run("should disable redis when the address is set empty", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("REDIS_ADDR", "")

		cfg, err := Load()
		req.NoError(err)
		req.Empty(cfg.Redis.Addr)
		req.False(cfg.Redis.Enabled())
	})

	t.Run("should fall back to localhost when the address is unset", func(t *testing.T) {
		req := require.New(t)
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("REDIS_ADDR", "")
		req.NoError(os.Unsetenv("REDIS_ADDR"))

		cfg, err := Load()
		req.NoError(err)
		req.Equal("localhost:6379", cfg.Redis.Addr)
		req.True(cfg.Redis.Enabled())
	})

	t.Run("should keep an explicit address", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "memory")
		t.Setenv("REDIS_ADDR", "redis:6379")

		cfg, err := Load()
		require.NoError(t, err)
		require.Equal(t, "redis:6379", cfg.Redis.Addr)
	})
}
