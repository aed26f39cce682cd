package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"skillswap/internal/config"
)

// Manager tracks live connections so they can be counted and closed on
// shutdown.
type Manager struct {
	connections map[string]*Connection
	mutex       sync.RWMutex
	metrics     *config.ServerMetrics
	logger      *slog.Logger
}

// NewManager creates a new connection manager. metrics and logger may be nil.
func NewManager(metrics *config.ServerMetrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		connections: make(map[string]*Connection),
		metrics:     metrics,
		logger:      logger,
	}
}

// Register adds a connection
func (m *Manager) Register(conn *Connection) {
	m.mutex.Lock()
	m.connections[conn.ID()] = conn
	total := len(m.connections)
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.IncrementConnections()
	}
	m.logger.Info("connection registered", "conn_id", conn.ID(), "remote", conn.RemoteAddr(), "total", total)
}

// Unregister removes a connection; unknown connections are ignored.
func (m *Manager) Unregister(conn *Connection) {
	m.mutex.Lock()
	_, exists := m.connections[conn.ID()]
	delete(m.connections, conn.ID())
	total := len(m.connections)
	m.mutex.Unlock()

	if !exists {
		return
	}
	if m.metrics != nil {
		m.metrics.DecrementConnections()
	}
	m.logger.Info("connection unregistered", "conn_id", conn.ID(), "remote", conn.RemoteAddr(), "total", total)
}

// Count returns the number of registered connections
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.connections)
}

// Shutdown sends a going-away close frame to every connection and closes
// it. Read loops then observe the close and release their room membership.
func (m *Manager) Shutdown(ctx context.Context, writeTimeout time.Duration) error {
	m.mutex.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mutex.RUnlock()

	m.logger.Info("closing websocket connections", "count", len(conns))
	for _, conn := range conns {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn.closeGoingAway(writeTimeout)
	}
	return nil
}
