package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"realtime_chat/internal/config"
	"realtime_chat/internal/gateway"
	"realtime_chat/internal/handler"
	"realtime_chat/internal/hub"
	"realtime_chat/internal/middleware"
	"realtime_chat/internal/repository"
	"realtime_chat/internal/service"
	"realtime_chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к Redis (опционально)
	rdb := connectRedis(ctx, cfg, appLogger)
	if rdb != nil {
		defer rdb.Close()
	}

	// Инициализация репозиториев
	var repos *repository.Repositories
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		repos = repository.NewMemoryRepositories(rdb, appLogger)
	default:
		dbPool := connectPostgres(ctx, cfg, appLogger)
		defer dbPool.Close()
		repos = repository.NewRepositories(dbPool, rdb, appLogger)
	}

	// Инициализация сервисов
	services := service.NewServices(repos, cfg, appLogger)

	// Хаб WebSocket клиентов
	chatHub := hub.New(hub.Config{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod(),
		WriteWait:      cfg.WebSocket.WriteWait,
	}, appLogger.With("component", "hub"))
	go chatHub.Run()

	// С Redis рассылка идёт через Pub/Sub, чтобы её получили клиенты всех экземпляров
	var broadcaster gateway.Broadcaster = chatHub
	if rdb != nil {
		relay := hub.NewRedisRelay(rdb, cfg.Redis.Channel, chatHub, appLogger.With("component", "relay"))
		broadcaster = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				appLogger.Error("Broadcast relay stopped", "error", err)
			}
		}()
	}

	gw := gateway.New(services.Message, services.RateLimit, broadcaster, gateway.Config{
		HistorySize:       cfg.Chat.HistorySize,
		RateLimitMessages: cfg.RateLimit.Messages,
		RateLimitWindow:   cfg.RateLimit.Window,
	}, appLogger.With("component", "gateway"))

	// Инициализация middleware и handlers
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, cfg.RateLimit.HTTPRequests, time.Minute, appLogger)
	handlers := handler.NewHandlers(services, repos, chatHub, gw, cfg, appLogger)

	// Настройка роутера
	router := setupRouter(handlers, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		appLogger.Info("Starting server", "addr", srv.Addr, "storage", cfg.Storage.Driver, "redis", rdb != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}
	if err := chatHub.Stop(shutdownCtx); err != nil {
		appLogger.Error("Hub did not stop in time", "error", err)
	}

	appLogger.Info("Server exited")
}

func connectPostgres(ctx context.Context, cfg *config.Config, log logger.Logger) *pgxpool.Pool {
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Invalid database DSN", "error", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConnections)
	poolCfg.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}

	// Проверка подключения к БД
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		log.Fatal("Failed to ping database", "error", err)
	}
	if err := repository.EnsureSchema(ctx, dbPool); err != nil {
		dbPool.Close()
		log.Fatal("Failed to prepare database schema", "error", err)
	}
	log.Info("Database connection established")
	return dbPool
}

// connectRedis возвращает nil, если Redis не настроен или недоступен:
// чат работает и без него, только без rate limiting и relay.
func connectRedis(ctx context.Context, cfg *config.Config, log logger.Logger) *redis.Client {
	if !cfg.Redis.Enabled() {
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis is unavailable, continuing without it", "error", err, "addr", cfg.Redis.Addr)
		_ = rdb.Close()
		return nil
	}
	log.Info("Redis connection established")
	return rdb
}

func setupRouter(
	handlers *handler.Handlers,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	handlers.Register(router, rateLimitMiddleware.Limit())

	return router
}
