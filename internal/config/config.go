package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Chat        ChatConfig
	WebSocket   WebSocketConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	DSN             string
	MaxConnections  int
	MaxIdleTime     time.Duration
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Redis опционален: пустой адрес отключает rate limiting и relay
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type ChatConfig struct {
	HistorySize      int
	MaxHistory       int
	StoreTimeout     time.Duration
	HistoryOnConnect bool
}

type WebSocketConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	WriteWait      time.Duration
}

// PingPeriod должен быть меньше PongWait
func (c WebSocketConfig) PingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

type RateLimitConfig struct {
	Messages     int
	Window       time.Duration
	HTTPRequests int
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	// Загрузка .env файла (если существует)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverPostgres)),
		},
		Database: DatabaseConfig{
			DSN:             getEnv("DATABASE_DSN", postgresDSNFromParts()),
			MaxConnections:  getEnvAsInt("DATABASE_MAX_CONNECTIONS", 25),
			MaxIdleTime:     getEnvAsDuration("DATABASE_MAX_IDLE_TIME", 5*time.Minute),
			ConnMaxLifetime: getEnvAsDuration("DATABASE_CONN_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			Addr:     getEnvAllowEmpty("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_CHANNEL", "chat:broadcast"),
		},
		Chat: ChatConfig{
			HistorySize:      getEnvAsInt("CHAT_HISTORY_SIZE", 50),
			MaxHistory:       getEnvAsInt("CHAT_MAX_HISTORY", 500),
			StoreTimeout:     getEnvAsDuration("CHAT_STORE_TIMEOUT", 5*time.Second),
			HistoryOnConnect: getEnvAsBool("CHAT_HISTORY_ON_CONNECT", true),
		},
		WebSocket: WebSocketConfig{
			SendBuffer:     getEnvAsInt("WS_SEND_BUFFER", 256),
			MaxMessageSize: int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 16384)),
			PongWait:       getEnvAsDuration("WS_PONG_WAIT", 60*time.Second),
			WriteWait:      getEnvAsDuration("WS_WRITE_WAIT", 10*time.Second),
		},
		RateLimit: RateLimitConfig{
			Messages:     getEnvAsInt("RATE_LIMIT_MESSAGES", 20),
			Window:       getEnvAsDuration("RATE_LIMIT_WINDOW", 10*time.Second),
			HTTPRequests: getEnvAsInt("RATE_LIMIT_HTTP_REQUESTS", 100),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN must be set")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Chat.HistorySize <= 0 {
		return fmt.Errorf("CHAT_HISTORY_SIZE must be positive")
	}
	if c.Chat.MaxHistory < c.Chat.HistorySize {
		return fmt.Errorf("CHAT_MAX_HISTORY must be >= CHAT_HISTORY_SIZE")
	}
	if c.Chat.StoreTimeout <= 0 {
		return fmt.Errorf("CHAT_STORE_TIMEOUT must be positive")
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	if c.WebSocket.PongWait <= 0 || c.WebSocket.WriteWait <= 0 {
		return fmt.Errorf("websocket timeouts must be positive")
	}
	return nil
}

// postgresDSNFromParts собирает DSN из POSTGRES_* переменных (формат PostgreSQL.env)
func postgresDSNFromParts() string {
	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	db := getEnv("POSTGRES_DB", "chat")
	user := getEnv("POSTGRES_USER", "chat")
	password := getEnv("POSTGRES_PASSWORD", "chat")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + db,
		RawQuery: "sslmode=" + getEnv("POSTGRES_SSLMODE", "disable"),
	}
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty различает «не задано» и «задано пустым»: пустое значение сохраняется
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
