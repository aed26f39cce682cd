package websocket

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"

	"skillswap/internal/config"
	"skillswap/internal/room"
)

var errFrameTooLarge = errors.New("frame too large")

// Membership binds connections to rooms.
type Membership interface {
	Join(ch room.Channel, roomID string)
	Leave(ch room.Channel)
}

// Handler upgrades HTTP requests to websocket connections and feeds their
// control frames to the room relay.
type Handler struct {
	upgrader websocket.Upgrader
	manager  *Manager
	rooms    Membership
	config   *config.ServerConfig
	metrics  *config.ServerMetrics
	logger   *slog.Logger
}

// NewHandler creates a new websocket handler. metrics and logger may be nil.
func NewHandler(cfg *config.ServerConfig, manager *Manager, rooms Membership, metrics *config.ServerMetrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		manager: manager,
		rooms:   rooms,
		config:  cfg,
		metrics: metrics,
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin accepts every origin when none are configured.
func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.config.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(h.config.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	conn := NewConnection(ws, h.config.SendBuffer)
	h.manager.Register(conn)

	go conn.writePump(h.config.HeartbeatInterval.Duration, h.config.WriteTimeout.Duration, h.logger)
	h.readLoop(conn)
}

func (h *Handler) readLoop(conn *Connection) {
	defer func() {
		h.rooms.Leave(conn)
		h.manager.Unregister(conn)
		_ = conn.Close()
	}()

	readTimeout := h.config.ReadTimeout.Duration
	_ = conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		messageType, reader, err := conn.conn.NextReader()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "conn_id", conn.ID(), "remote", conn.RemoteAddr(), "error", err)
			}
			return
		}

		data, err := readFrame(reader, h.config.MaxFrameSize)
		switch {
		case errors.Is(err, errFrameTooLarge):
			h.rejectFrame(conn, err)
			continue
		case err != nil:
			h.logger.Debug("websocket frame read failed", "conn_id", conn.ID(), "remote", conn.RemoteAddr(), "error", err)
			return
		}

		if messageType != websocket.TextMessage {
			h.rejectFrame(conn, errors.New("binary frames are not supported"))
			continue
		}
		h.handleFrame(conn, data)
	}
}

// readFrame reads one frame of at most limit bytes. A larger frame is
// drained so the connection can carry on with the next one.
func readFrame(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: over %d bytes", errFrameTooLarge, limit)
	}
	return data, nil
}

func (h *Handler) handleFrame(conn *Connection, data []byte) {
	inbound, err := room.DecodeInbound(data)
	if err != nil {
		h.rejectFrame(conn, err)
		return
	}

	switch msg := inbound.(type) {
	case room.JoinRoom:
		h.rooms.Join(conn, msg.RoomID)
	}
}

// rejectFrame drops a frame the relay cannot act on. The connection stays up.
func (h *Handler) rejectFrame(conn *Connection, err error) {
	if h.metrics != nil {
		h.metrics.IncrementMalformedFrames()
	}
	h.logger.Debug("ignoring frame", "conn_id", conn.ID(), "remote", conn.RemoteAddr(), "error", err)
}
