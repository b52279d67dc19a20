package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"realtime_chat/internal/domain"
	"realtime_chat/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// RedisRelay публикует рассылки в канал Redis, чтобы их получили клиенты
// всех экземпляров сервера. Каждый экземпляр подписан и доставляет
// полученное своим локальным клиентам. Пока подписки нет, рассылка
// доставляется локальным клиентам напрямую.
type RedisRelay struct {
	rdb        *redis.Client
	channel    string
	hub        *Hub
	subscribed atomic.Bool
	log        logger.Logger
}

func NewRedisRelay(rdb *redis.Client, channel string, h *Hub, log logger.Logger) *RedisRelay {
	return &RedisRelay{
		rdb:     rdb,
		channel: channel,
		hub:     h,
		log:     log,
	}
}

func (r *RedisRelay) Broadcast(ctx context.Context, event domain.OutboundEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}

	if !r.subscribed.Load() {
		// своя подписка не получит публикацию: локальным клиентам доставляем сами,
		// другим экземплярам публикуем по возможности
		if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
			r.log.Warn("Failed to publish broadcast", "error", err, "channel", r.channel)
		}
		return r.hub.Deliver(ctx, payload)
	}

	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		// Сообщение уже сохранено: локальные клиенты должны получить его хотя бы здесь
		r.log.Warn("Failed to publish broadcast, delivering locally", "error", err, "channel", r.channel)
		return r.hub.Deliver(ctx, payload)
	}
	return nil
}

// Run подписывается на канал и блокируется до отмены ctx.
// После выхода Run рассылка снова идёт только локально.
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()

	// Ждём подтверждения подписки, иначе ранние публикации потеряются
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.subscribed.Store(true)
	defer r.subscribed.Store(false)
	r.log.Info("Broadcast relay subscribed", "channel", r.channel)

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := r.hub.Deliver(ctx, []byte(msg.Payload)); err != nil {
				r.log.Warn("Failed to deliver relayed broadcast", "error", err)
			}
		}
	}
}
