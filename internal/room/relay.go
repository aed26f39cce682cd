// Package room keeps track of which live connections watch which chat room
// and fans notifications out to them.
package room

import (
	"log/slog"
	"sync"

	"skillswap/internal/config"
)

// Channel is one client's duplex connection as seen by the relay.
type Channel interface {
	ID() string
	// IsOpen reports whether the channel can currently accept a frame.
	IsOpen() bool
	// Send queues a frame without blocking.
	Send(data []byte) error
}

// Relay maps room IDs to their member channels. A channel belongs to at
// most one room; rooms exist only while they have members.
//
// The mutex covers both maps so that a channel is in members[r] exactly
// when current[channel] == r.
type Relay struct {
	rooms   map[string]map[Channel]struct{}
	current map[Channel]string
	metrics *config.ServerMetrics
	logger  *slog.Logger
	mutex   sync.Mutex
}

// NewRelay creates an empty relay.
func NewRelay(metrics *config.ServerMetrics, logger *slog.Logger) *Relay {
	if metrics == nil {
		metrics = config.NewServerMetrics()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Relay{
		rooms:   make(map[string]map[Channel]struct{}),
		current: make(map[Channel]string),
		metrics: metrics,
		logger:  logger,
	}
}

// Join moves ch into roomID, leaving its previous room first. Joining the
// room ch is already in does nothing.
func (r *Relay) Join(ch Channel, roomID string) {
	if roomID == "" {
		r.logger.Warn("ignoring join with empty room", "conn_id", ch.ID())
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	previous, bound := r.current[ch]
	if bound && previous == roomID {
		return
	}
	if bound {
		r.removeLocked(ch, previous)
	}

	members, exists := r.rooms[roomID]
	if !exists {
		members = make(map[Channel]struct{})
		r.rooms[roomID] = members
		r.metrics.RoomOpened()
	}
	members[ch] = struct{}{}
	r.current[ch] = roomID

	r.logger.Debug("joined room", "conn_id", ch.ID(), "room", roomID, "previous", previous, "members", len(members))
}

// Leave removes ch from its current room, if any.
func (r *Relay) Leave(ch Channel) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	roomID, bound := r.current[ch]
	if !bound {
		return
	}
	r.removeLocked(ch, roomID)
	r.logger.Debug("left room", "conn_id", ch.ID(), "room", roomID)
}

func (r *Relay) removeLocked(ch Channel, roomID string) {
	delete(r.current, ch)
	members, exists := r.rooms[roomID]
	if !exists {
		return
	}
	delete(members, ch)
	if len(members) == 0 {
		delete(r.rooms, roomID)
		r.metrics.RoomClosed()
	}
}

// Broadcast encodes event once and sends it to every open member of roomID.
// Closed members are skipped and send failures are logged; neither removes
// the member. A room without members is a no-op.
func (r *Relay) Broadcast(roomID string, event Event) {
	data, err := Encode(event)
	if err != nil {
		r.logger.Error("failed to encode event", "room", roomID, "error", err)
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	members := r.rooms[roomID]
	if len(members) == 0 {
		return
	}

	var delivered, skipped, failed int
	for ch := range members {
		if !ch.IsOpen() {
			skipped++
			continue
		}
		if err := ch.Send(data); err != nil {
			failed++
			r.logger.Warn("failed to deliver event", "conn_id", ch.ID(), "room", roomID, "error", err)
			continue
		}
		delivered++
	}

	r.metrics.RecordBroadcast(delivered, skipped, failed)
	r.logger.Debug("broadcast", "room", roomID, "delivered", delivered, "skipped", skipped, "failed", failed)
}

// RoomOf returns the room ch currently belongs to.
func (r *Relay) RoomOf(ch Channel) (string, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	roomID, bound := r.current[ch]
	return roomID, bound
}

// MemberCount returns the number of channels in roomID.
func (r *Relay) MemberCount(roomID string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.rooms[roomID])
}

// RoomCount returns the number of rooms with at least one member.
func (r *Relay) RoomCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.rooms)
}
