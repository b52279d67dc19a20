package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"realtime_chat/internal/domain"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrHubStopped   = errors.New("hub stopped")
	ErrClientClosed = errors.New("client closed")
	ErrQueueFull    = errors.New("client send queue full")
)

// Handler обрабатывает один входящий кадр клиента. Вызывается из readPump последовательно.
type Handler func(ctx context.Context, client *Client, raw []byte)

type Client struct {
	id      string
	addr    string
	conn    *websocket.Conn
	hub     *Hub
	handler Handler

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(h *Hub, conn *websocket.Conn, addr string, handler Handler) *Client {
	if conn != nil && h.cfg.MaxMessageSize > 0 {
		conn.SetReadLimit(h.cfg.MaxMessageSize)
	}
	buffer := h.cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		id:      uuid.NewString(),
		addr:    addr,
		conn:    conn,
		hub:     h,
		handler: handler,
		send:    make(chan []byte, buffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Addr() string {
	return c.addr
}

// Send ставит событие в очередь только этому клиенту.
func (c *Client) Send(event domain.OutboundEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrQueueFull
	}
}

func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) readPump() {
	log := c.hub.log
	defer func() {
		c.hub.Unregister(c)
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn("Error closing connection in readPump", "client_id", c.id, "error", err)
		}
	}()

	pongWait := c.hub.cfg.PongWait
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if c.handler != nil {
			c.handler(c.hub.ctx, c, raw)
		}
	}
}

func (c *Client) logReadError(err error) {
	log := c.hub.log
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Warn("Client message exceeded maximum size", "client_id", c.id, "limit", c.hub.cfg.MaxMessageSize)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway),
		errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Debug("Client disconnected", "client_id", c.id, "error", err)
	default:
		log.Warn("WebSocket read error", "client_id", c.id, "error", err)
	}
}

func (c *Client) writePump() {
	log := c.hub.log
	ticker := time.NewTicker(c.hub.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			log.Warn("Error closing connection in writePump", "client_id", c.id, "error", err)
		}
	}()

	writeWait := c.hub.cfg.WriteWait
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// одно событие на кадр, чтобы каждый кадр был валидным JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				if !isExpectedCloseError(err) {
					log.Warn("Error writing message", "client_id", c.id, "error", err)
				}
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
