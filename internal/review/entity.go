package review

import (
	"time"

	"skillswap/internal/moderation"
)

// Review is one participant's rating of the other after a swap.
type Review struct {
	ID            int64     `json:"id"`
	ReviewerID    int64     `json:"reviewerId"`
	RevieweeID    int64     `json:"revieweeId"`
	SwapRequestID int64     `json:"swapRequestId"`
	Rating        int       `json:"rating"`
	Comment       string    `json:"comment,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (r *Review) ReviewComment() string { return r.Comment }

func (r *Review) ReviewRating() int { return r.Rating }

// CreateInput is what a reviewer submits.
type CreateInput struct {
	RevieweeID    int64  `json:"revieweeId"`
	SwapRequestID int64  `json:"swapRequestId"`
	Rating        int    `json:"rating"`
	Comment       string `json:"comment"`
}

// Analyzed is a visible review together with the verdict that let it through.
type Analyzed struct {
	*Review
	SentimentAnalysis moderation.Verdict `json:"sentimentAnalysis"`
}
