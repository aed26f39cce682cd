package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skillswap/internal/database"
)

// MongoRepository implements Repository using MongoDB. Duplicate reviews are
// rejected by the unique (reviewer_id, swap_request_id) index.
type MongoRepository struct {
	db         *database.MongoDB
	collection *mongo.Collection
	timeout    time.Duration
}

// NewMongoRepository creates a new MongoDB review repository
func NewMongoRepository(db *database.MongoDB) *MongoRepository {
	return &MongoRepository{
		db:         db,
		collection: db.GetCollection(database.ReviewsCollection),
		timeout:    5 * time.Second,
	}
}

// Create saves a review to MongoDB
func (r *MongoRepository) Create(ctx context.Context, review *Review) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := r.db.NextID(ctx, database.ReviewsCollection)
	if err != nil {
		return err
	}

	doc := &database.ReviewDocument{
		ID:            id,
		ReviewerID:    review.ReviewerID,
		RevieweeID:    review.RevieweeID,
		SwapRequestID: review.SwapRequestID,
		Rating:        review.Rating,
		Comment:       review.Comment,
		CreatedAt:     time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyReviewed
		}
		return fmt.Errorf("failed to save review: %w", err)
	}

	review.ID = doc.ID
	review.CreatedAt = doc.CreatedAt
	return nil
}

// ListForReviewee retrieves the reviews a user received, newest first
func (r *MongoRepository) ListForReviewee(ctx context.Context, revieweeID int64) ([]*Review, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"reviewee_id": revieweeID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve reviews: %w", err)
	}
	defer cursor.Close(ctx)

	var reviews []*Review
	for cursor.Next(ctx) {
		var doc database.ReviewDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode review: %w", err)
		}
		reviews = append(reviews, &Review{
			ID:            doc.ID,
			ReviewerID:    doc.ReviewerID,
			RevieweeID:    doc.RevieweeID,
			SwapRequestID: doc.SwapRequestID,
			Rating:        doc.Rating,
			Comment:       doc.Comment,
			CreatedAt:     doc.CreatedAt,
		})
	}
	return reviews, cursor.Err()
}

// HasReviewed reports whether a review exists for the reviewer and swap request
func (r *MongoRepository) HasReviewed(ctx context.Context, reviewerID, swapRequestID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err := r.collection.FindOne(ctx, bson.M{
		"reviewer_id":     reviewerID,
		"swap_request_id": swapRequestID,
	}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check review: %w", err)
	}
	return true, nil
}
