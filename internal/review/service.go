package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"skillswap/internal/config"
	"skillswap/internal/moderation"
	"skillswap/internal/security"
)

var (
	// ErrSelfReview is returned when a user tries to review themselves.
	ErrSelfReview = errors.New("cannot review yourself")
	// ErrInvalidReference is returned for non-positive user or swap request ids.
	ErrInvalidReference = errors.New("invalid user or swap request id")
)

// Service creates reviews and serves the moderated view of a user's reviews.
type Service struct {
	repo      Repository
	validator *security.InputValidator
	metrics   *config.ServerMetrics
	logger    *slog.Logger
}

// NewService creates a new review service. metrics and logger may be nil.
func NewService(repo Repository, validator *security.InputValidator, metrics *config.ServerMetrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:      repo,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
	}
}

// Create stores a review written by reviewerID.
func (s *Service) Create(ctx context.Context, reviewerID int64, input CreateInput) (*Review, error) {
	if reviewerID <= 0 || input.RevieweeID <= 0 || input.SwapRequestID <= 0 {
		return nil, ErrInvalidReference
	}
	if reviewerID == input.RevieweeID {
		return nil, ErrSelfReview
	}
	if err := s.validator.ValidateRating(input.Rating); err != nil {
		return nil, err
	}
	comment, err := s.validator.ValidateComment(input.Comment)
	if err != nil {
		return nil, err
	}

	reviewed, err := s.repo.HasReviewed(ctx, reviewerID, input.SwapRequestID)
	if err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if reviewed {
		return nil, ErrAlreadyReviewed
	}

	review := &Review{
		ReviewerID:    reviewerID,
		RevieweeID:    input.RevieweeID,
		SwapRequestID: input.SwapRequestID,
		Rating:        input.Rating,
		Comment:       comment,
	}
	if err := s.repo.Create(ctx, review); err != nil {
		if errors.Is(err, ErrAlreadyReviewed) {
			return nil, err
		}
		return nil, fmt.Errorf("store review: %w", err)
	}

	s.logger.Info("review created",
		"review_id", review.ID,
		"reviewer_id", reviewerID,
		"reviewee_id", review.RevieweeID,
		"swap_request_id", review.SwapRequestID,
		"rating", review.Rating)
	return review, nil
}

// HasReviewed reports whether reviewerID already reviewed swapRequestID.
func (s *Service) HasReviewed(ctx context.Context, reviewerID, swapRequestID int64) (bool, error) {
	if swapRequestID <= 0 {
		return false, ErrInvalidReference
	}
	return s.repo.HasReviewed(ctx, reviewerID, swapRequestID)
}

// ListForUser returns the reviews revieweeID received that pass moderation,
// positive ones first and then by rating, highest first.
func (s *Service) ListForUser(ctx context.Context, revieweeID int64) ([]Analyzed, error) {
	if revieweeID <= 0 {
		return nil, ErrInvalidReference
	}
	reviews, err := s.repo.ListForReviewee(ctx, revieweeID)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}

	ranked := moderation.FilterAndRank(reviews)
	visible := make([]Analyzed, 0, len(ranked))
	for _, r := range ranked {
		visible = append(visible, Analyzed{Review: r.Item, SentimentAnalysis: r.Verdict})
	}

	if hidden := len(reviews) - len(visible); hidden > 0 {
		if s.metrics != nil {
			s.metrics.AddHiddenReviews(hidden)
		}
		s.logger.Debug("reviews hidden by moderation", "reviewee_id", revieweeID, "hidden", hidden)
	}
	return visible, nil
}
