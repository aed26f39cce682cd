package database

import (
	"time"
)

// ChatMessageDocument represents a chat message document in MongoDB
type ChatMessageDocument struct {
	ID            int64     `bson:"_id"`
	SwapRequestID int64     `bson:"swap_request_id"`
	SenderID      int64     `bson:"sender_id"`
	Message       string    `bson:"message"`
	CreatedAt     time.Time `bson:"created_at"`
}

// ReviewDocument represents a review document in MongoDB
type ReviewDocument struct {
	ID            int64     `bson:"_id"`
	ReviewerID    int64     `bson:"reviewer_id"`
	RevieweeID    int64     `bson:"reviewee_id"`
	SwapRequestID int64     `bson:"swap_request_id"`
	Rating        int       `bson:"rating"`
	Comment       string    `bson:"comment,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
}

// CounterDocument holds the last value handed out by an integer sequence.
type CounterDocument struct {
	ID  string `bson:"_id"`
	Seq int64  `bson:"seq"`
}
