package chat

import (
	"context"
	"sync"
	"time"
)

// Repository stores chat messages.
type Repository interface {
	// Create assigns ID and CreatedAt and stores the message.
	Create(ctx context.Context, message *Message) error
	// ListBySwapRequest returns a swap request's messages, oldest first.
	ListBySwapRequest(ctx context.Context, swapRequestID int64) ([]*Message, error)
}

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	messages map[int64][]*Message
	nextID   int64
	now      func() time.Time
	mutex    sync.RWMutex
}

// NewInMemoryRepository creates a new in-memory chat repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		messages: make(map[int64][]*Message),
		now:      time.Now,
	}
}

// Create stores a message
func (r *InMemoryRepository) Create(_ context.Context, message *Message) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	message.ID = r.nextID
	message.CreatedAt = r.now().UTC()

	stored := *message
	r.messages[message.SwapRequestID] = append(r.messages[message.SwapRequestID], &stored)
	return nil
}

// ListBySwapRequest returns copies of the stored messages
func (r *InMemoryRepository) ListBySwapRequest(_ context.Context, swapRequestID int64) ([]*Message, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stored := r.messages[swapRequestID]
	messages := make([]*Message, 0, len(stored))
	for _, message := range stored {
		copied := *message
		messages = append(messages, &copied)
	}
	return messages, nil
}
