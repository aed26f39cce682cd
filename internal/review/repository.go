package review

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAlreadyReviewed is returned when a reviewer reviews the same swap twice.
var ErrAlreadyReviewed = errors.New("swap already reviewed")

// Repository stores reviews.
type Repository interface {
	// Create assigns ID and CreatedAt. It returns ErrAlreadyReviewed if the
	// reviewer already has a review for the swap request.
	Create(ctx context.Context, review *Review) error
	// ListForReviewee returns reviews received by a user, newest first.
	ListForReviewee(ctx context.Context, revieweeID int64) ([]*Review, error)
	HasReviewed(ctx context.Context, reviewerID, swapRequestID int64) (bool, error)
}

type reviewKey struct {
	reviewerID    int64
	swapRequestID int64
}

// InMemoryRepository implements Repository using in-memory storage
type InMemoryRepository struct {
	reviews  []*Review
	reviewed map[reviewKey]struct{}
	nextID   int64
	now      func() time.Time
	mutex    sync.RWMutex
}

// NewInMemoryRepository creates a new in-memory review repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		reviewed: make(map[reviewKey]struct{}),
		now:      time.Now,
	}
}

// Create stores a review
func (r *InMemoryRepository) Create(_ context.Context, review *Review) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := reviewKey{reviewerID: review.ReviewerID, swapRequestID: review.SwapRequestID}
	if _, exists := r.reviewed[key]; exists {
		return ErrAlreadyReviewed
	}

	r.nextID++
	review.ID = r.nextID
	review.CreatedAt = r.now().UTC()

	stored := *review
	r.reviews = append(r.reviews, &stored)
	r.reviewed[key] = struct{}{}
	return nil
}

// ListForReviewee returns copies of a user's received reviews, newest first
func (r *InMemoryRepository) ListForReviewee(_ context.Context, revieweeID int64) ([]*Review, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var reviews []*Review
	for i := len(r.reviews) - 1; i >= 0; i-- {
		if r.reviews[i].RevieweeID != revieweeID {
			continue
		}
		copied := *r.reviews[i]
		reviews = append(reviews, &copied)
	}
	return reviews, nil
}

// HasReviewed reports whether reviewerID already reviewed swapRequestID
func (r *InMemoryRepository) HasReviewed(_ context.Context, reviewerID, swapRequestID int64) (bool, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.reviewed[reviewKey{reviewerID: reviewerID, swapRequestID: swapRequestID}]
	return exists, nil
}
