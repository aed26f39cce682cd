package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	ChatsCollection    = "chats"
	ReviewsCollection  = "reviews"
	CountersCollection = "counters"
)

// ErrNotConfigured is returned when no MongoDB URI is set.
var ErrNotConfigured = errors.New("mongodb uri not configured")

// MongoDB represents a MongoDB connection
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	config   *MongoConfig
	logger   *slog.Logger
}

// MongoConfig holds MongoDB configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	PingTimeout    time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig() *MongoConfig {
	return &MongoConfig{
		URI:            "mongodb://localhost:27017",
		Database:       "skillswap",
		ConnectTimeout: 10 * time.Second,
		PingTimeout:    5 * time.Second,
		MaxPoolSize:    100,
		MinPoolSize:    5,
	}
}

// NewMongoDB connects to MongoDB and verifies the connection with a ping.
func NewMongoDB(ctx context.Context, config *MongoConfig, logger *slog.Logger) (*MongoDB, error) {
	if config == nil {
		config = DefaultMongoConfig()
	}
	if config.URI == "" {
		return nil, ErrNotConfigured
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetConnectTimeout(config.ConnectTimeout).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, config.PingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", config.Database)

	return &MongoDB{
		client:   client,
		database: client.Database(config.Database),
		config:   config,
		logger:   logger,
	}, nil
}

// GetCollection returns a collection
func (m *MongoDB) GetCollection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("disconnected from MongoDB")
	return nil
}

// CreateIndexes creates the indexes the repositories query by.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	chatIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "swap_request_id", Value: 1}, {Key: "created_at", Value: 1}}},
	}
	if _, err := m.GetCollection(ChatsCollection).Indexes().CreateMany(ctx, chatIndexes); err != nil {
		return fmt.Errorf("failed to create chat indexes: %w", err)
	}

	reviewIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "reviewee_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{
			Keys:    bson.D{{Key: "reviewer_id", Value: 1}, {Key: "swap_request_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.GetCollection(ReviewsCollection).Indexes().CreateMany(ctx, reviewIndexes); err != nil {
		return fmt.Errorf("failed to create review indexes: %w", err)
	}

	m.logger.Info("created MongoDB indexes")
	return nil
}

// NextID returns the next value of the named integer sequence.
func (m *MongoDB) NextID(ctx context.Context, sequence string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter CounterDocument
	err := m.GetCollection(CountersCollection).FindOneAndUpdate(
		ctx,
		bson.M{"_id": sequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", sequence, err)
	}
	return counter.Seq, nil
}

// HealthCheck performs a health check on the MongoDB connection
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.PingTimeout)
	defer cancel()

	if err := m.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("MongoDB health check failed: %w", err)
	}
	return nil
}
