package chat

import (
	"time"
)

// Message is a stored chat message between the two parties of a swap request.
type Message struct {
	ID            int64     `json:"id"`
	SwapRequestID int64     `json:"swapRequestId"`
	SenderID      int64     `json:"senderId"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
}
