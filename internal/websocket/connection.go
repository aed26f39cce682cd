package websocket

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrSendQueueFull    = errors.New("send queue full")
)

// Connection is one client socket. Outgoing frames go through a bounded
// queue drained by a single writer goroutine.
type Connection struct {
	id     string
	conn   *websocket.Conn
	remote string
	send   chan []byte
	done   chan struct{}
	open   atomic.Bool
	once   sync.Once
}

// NewConnection wraps conn with a send queue of sendBuffer frames.
func NewConnection(conn *websocket.Conn, sendBuffer int) *Connection {
	c := &Connection{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if conn != nil {
		c.remote = conn.RemoteAddr().String()
	}
	c.open.Store(true)
	return c
}

// ID returns the connection ID
func (c *Connection) ID() string {
	return c.id
}

// RemoteAddr returns the peer address
func (c *Connection) RemoteAddr() string {
	return c.remote
}

// IsOpen reports whether the connection still accepts frames.
func (c *Connection) IsOpen() bool {
	return c.open.Load()
}

// Send queues data for the writer without blocking.
func (c *Connection) Send(data []byte) error {
	if !c.open.Load() {
		return ErrConnectionClosed
	}
	select {
	case <-c.done:
		return ErrConnectionClosed
	case c.send <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Close stops the writer and closes the socket. Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		c.markClosed()
		err = c.conn.Close()
	})
	return err
}

func (c *Connection) markClosed() {
	c.open.Store(false)
	close(c.done)
}

// closeGoingAway tells the peer the server is shutting down, then closes.
func (c *Connection) closeGoingAway(writeTimeout time.Duration) {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	_ = c.Close()
}

// writePump writes queued frames and pings the peer every heartbeat until
// the connection is closed or a write fails.
func (c *Connection) writePump(heartbeat, writeTimeout time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case <-c.done:
			return

		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Debug("write failed", "conn_id", c.id, "remote", c.remote, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.Debug("ping failed", "conn_id", c.id, "remote", c.remote, "error", err)
				return
			}
		}
	}
}
