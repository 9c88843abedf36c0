package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/avolkv/canvora/models"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024 * 64
)

func NewClient(registry *Registry, conn *websocket.Conn, user models.User, canvasId string) *Client {
	return &Client{
		registry: registry,
		conn:     conn,
		user:     user,
		canvasId: canvasId,
		Send:     make(chan []byte, 128),
	}
}

// Client is a middleman between the websocket connection and the registry.
type Client struct {
	registry *Registry
	conn     *websocket.Conn
	user     models.User
	canvasId string
	Send     chan []byte // Buffered channel of outbound messages.

	sendMu sync.Mutex
	closed bool
}

// Close signals the write pump to send a close frame and stop. Idempotent;
// the registry and the read pump may race to call it.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// trySend queues a payload without blocking. Returns false when the buffer is
// full. Payloads for an already closed client are dropped.
func (c *Client) trySend(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// ReadPump reads payloads sequentially and relays each to the canvas session.
// The single reader is what keeps one sender's messages in order for every
// recipient.
func (c *Client) ReadPump() {
	defer func() {
		c.registry.Remove(c.canvasId, c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WS close error: %v", err)
			}
			break
		}

		// Payloads are opaque to the server; relay as-is.
		c.registry.Broadcast(c.canvasId, messageBytes)
	}
}

func (c *Client) WritePump(shutdownCtx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WS send error: %v", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-shutdownCtx.Done():
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Websocket service shutting down"),
			)
			return
		}
	}
}
