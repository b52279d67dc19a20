package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"realtime_chat/internal/domain"
	"realtime_chat/pkg/logger"
)

type Config struct {
	SendBuffer     int
	MaxMessageSize int64
	PongWait       time.Duration
	PingPeriod     time.Duration
	WriteWait      time.Duration
}

// Hub владеет реестром клиентов. Реестр меняется только из Run.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	mu         sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	cfg        Config
	log        logger.Logger
}

func New(cfg Config, log logger.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		cfg:        cfg,
		log:        log,
	}
}

// Run обрабатывает регистрацию, отключение и рассылку до вызова Stop.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Client registered", "client_id", client.id, "addr", client.addr, "clients", count)

			if client.conn != nil {
				h.wg.Add(2)
				go func() {
					defer h.wg.Done()
					client.writePump()
				}()
				go func() {
					defer h.wg.Done()
					client.readPump()
				}()
			}

		case client := <-h.unregister:
			h.remove(client)

		case payload := <-h.broadcast:
			h.fanOut(payload)
		}
	}
}

// Stop закрывает всех клиентов и ждёт завершения их горутин.
func (h *Hub) Stop(ctx context.Context) error {
	h.cancel()
	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	waited := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// Broadcast кодирует событие и доставляет его всем подключённым клиентам этого процесса.
func (h *Hub) Broadcast(ctx context.Context, event domain.OutboundEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return h.Deliver(ctx, payload)
}

// Deliver рассылает уже закодированное событие (используется и relay).
func (h *Hub) Deliver(ctx context.Context, payload []byte) error {
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.ctx.Done():
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) fanOut(payload []byte) {
	clients := h.snapshot()

	var failed []*Client
	for _, client := range clients {
		if !client.enqueue(payload) {
			failed = append(failed, client)
		}
	}
	for _, client := range failed {
		h.log.Warn("Dropping slow client", "client_id", client.id, "addr", client.addr)
		h.remove(client)
	}
	h.log.Debug("Broadcast delivered", "clients", len(clients)-len(failed), "dropped", len(failed))
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.closeSend()
		h.log.Info("Client unregistered", "client_id", client.id, "addr", client.addr, "clients", count)
	}
}

func (h *Hub) shutdownClients() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for client := range clients {
		client.closeSend()
	}
	h.log.Info("Hub stopped", "closed_clients", len(clients))
}
