package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// Conn is the subset of the websocket connection the realtime layer needs;
// tests substitute an in-memory implementation.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(int, []byte) error
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
	SetPongHandler(func(string) error)
	SetReadLimit(int64)
	Close() error
}

// Client binds one live connection to its authenticated identity. It exists
// only while the socket is open and is not a source of truth for anything
// but routing.
type Client struct {
	UserID int64
	Role   string

	conn      Conn
	send      chan []byte
	hub       *Hub
	closeOnce sync.Once

	// guards closed so enqueue never races the channel close
	mu     sync.Mutex
	closed bool
}

func newClient(hub *Hub, conn Conn, userID int64, role string) *Client {
	return &Client{
		UserID: userID,
		Role:   role,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		hub:    hub,
	}
}

// enqueue hands a frame to the write pump. Drops when the buffer is full so
// one slow consumer cannot stall a broadcast, and drops after close so a
// late delivery cannot hit a closed channel.
func (c *Client) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.hub.Remove(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
