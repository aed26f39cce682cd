package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectTestMongo(t *testing.T) *MongoDB {
	t.Helper()
	uri := os.Getenv("SKILLSWAP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SKILLSWAP_TEST_MONGO_URI not set")
	}

	cfg := DefaultMongoConfig()
	cfg.URI = uri
	cfg.Database = fmt.Sprintf("skillswap_test_%d", time.Now().UnixNano())

	db, err := NewMongoDB(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		_ = db.database.Drop(ctx)
		_ = db.Close(ctx)
	})
	return db
}

func TestNewMongoDB_NotConfigured(t *testing.T) {
	cfg := DefaultMongoConfig()
	cfg.URI = ""
	_, err := NewMongoDB(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestMongoDB_NextIDAndIndexes(t *testing.T) {
	db := connectTestMongo(t)
	ctx := context.Background()

	require.NoError(t, db.CreateIndexes(ctx))
	require.NoError(t, db.HealthCheck(ctx))

	first, err := db.NextID(ctx, ChatsCollection)
	require.NoError(t, err)
	second, err := db.NextID(ctx, ChatsCollection)
	require.NoError(t, err)
	other, err := db.NextID(ctx, ReviewsCollection)
	require.NoError(t, err)

	assert.Equal(t, int64(1), first)
	assert.Equal(t, int64(2), second)
	assert.Equal(t, int64(1), other, "sequences are independent")
}
