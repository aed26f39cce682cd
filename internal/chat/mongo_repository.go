package chat

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillswap/internal/database"
)

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	db         *database.MongoDB
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoRepository creates a new MongoDB chat repository
func NewMongoRepository(db *database.MongoDB) *MongoRepository {
	return &MongoRepository{
		db:         db,
		collection: db.GetCollection(database.ChatsCollection),
		timeout:    5 * time.Second,
	}
}

// Create saves a message to MongoDB
func (r *MongoRepository) Create(ctx context.Context, message *Message) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.db.NextID(ctx, database.ChatsCollection)
	if err != nil {
		return err
	}

	doc := &database.ChatMessageDocument{
		ID:            id,
		SwapRequestID: message.SwapRequestID,
		SenderID:      message.SenderID,
		Message:       message.Message,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}

	message.ID = doc.ID
	message.CreatedAt = doc.CreatedAt
	return nil
}

// ListBySwapRequest retrieves the message history of a swap request
func (r *MongoRepository) ListBySwapRequest(ctx context.Context, swapRequestID int64) ([]*Message, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"swap_request_id": swapRequestID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve chat messages: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []database.ChatMessageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode chat messages: %w", err)
	}

	messages := make([]*Message, 0, len(docs))
	for _, doc := range docs {
		messages = append(messages, &Message{
			ID:            doc.ID,
			SwapRequestID: doc.SwapRequestID,
			SenderID:      doc.SenderID,
			Message:       doc.Message,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return messages, nil
}
