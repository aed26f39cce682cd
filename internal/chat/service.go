package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"skillswap/internal/config"
	"skillswap/internal/room"
	"skillswap/internal/security"
)

var (
	// ErrInvalidSwapRequest is returned for a non-positive swap request id.
	ErrInvalidSwapRequest = errors.New("invalid swap request id")
	// ErrRateLimited is returned when a sender posts faster than allowed.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Broadcaster pushes an event to every member of a room.
type Broadcaster interface {
	Broadcast(roomID string, event room.Event)
}

// Service persists chat messages and relays them to the swap request's room.
type Service struct {
	repo        Repository
	broadcaster Broadcaster
	validator   *security.InputValidator
	limiter     *config.RateLimiter
	metrics     *config.ServerMetrics
	logger      *slog.Logger
}

// NewService creates a new chat service. limiter, metrics and logger may be nil.
func NewService(repo Repository, broadcaster Broadcaster, validator *security.InputValidator, limiter *config.RateLimiter, metrics *config.ServerMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:        repo,
		broadcaster: broadcaster,
		validator:   validator,
		limiter:     limiter,
		metrics:     metrics,
		logger:      logger,
	}
}

// PostMessage stores a message from senderID and pushes it to everyone in
// the swap request's room. The message is stored before it is relayed.
func (s *Service) PostMessage(ctx context.Context, swapRequestID, senderID int64, text string) (*Message, error) {
	if swapRequestID <= 0 {
		return nil, ErrInvalidSwapRequest
	}

	text, err := s.validator.ValidateMessage(text)
	if err != nil {
		return nil, err
	}

	if s.limiter != nil && !s.limiter.Allow(strconv.FormatInt(senderID, 10)) {
		s.logger.Warn("chat rate limit exceeded", "sender_id", senderID)
		return nil, ErrRateLimited
	}

	message := &Message{
		SwapRequestID: swapRequestID,
		SenderID:      senderID,
		Message:       text,
	}
	if err := s.repo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("store chat message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncrementMessages()
	}

	roomID := room.SwapRoom(swapRequestID)
	s.broadcaster.Broadcast(roomID, room.NewMessage{Message: message})
	s.logger.Debug("chat message relayed", "room", roomID, "message_id", message.ID, "sender_id", senderID)

	return message, nil
}

// History returns the swap request's messages in the order they were stored.
func (s *Service) History(ctx context.Context, swapRequestID int64) ([]*Message, error) {
	if swapRequestID <= 0 {
		return nil, ErrInvalidSwapRequest
	}
	messages, err := s.repo.ListBySwapRequest(ctx, swapRequestID)
	if err != nil {
		return nil, fmt.Errorf("load chat history: %w", err)
	}
	return messages, nil
}
