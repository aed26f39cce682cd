package review

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/database"
)

func TestMongoRepository_UniqueReviewPerSwap(t *testing.T) {
	uri := os.Getenv("SKILLSWAP_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SKILLSWAP_TEST_MONGO_URI not set")
	}

	ctx := context.Background()
	cfg := database.DefaultMongoConfig()
	cfg.URI = uri
	cfg.Database = fmt.Sprintf("skillswap_review_test_%d", time.Now().UnixNano())
	db, err := database.NewMongoDB(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.GetCollection(database.ReviewsCollection).Database().Drop(ctx)
		_ = db.Close(ctx)
	})
	require.NoError(t, db.CreateIndexes(ctx))

	repo := NewMongoRepository(db)
	require.NoError(t, repo.Create(ctx, &Review{ReviewerID: 1, RevieweeID: 2, SwapRequestID: 3, Rating: 5, Comment: "great"}))

	err = repo.Create(ctx, &Review{ReviewerID: 1, RevieweeID: 2, SwapRequestID: 3, Rating: 1})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	reviewed, err := repo.HasReviewed(ctx, 1, 3)
	require.NoError(t, err)
	assert.True(t, reviewed)

	reviewed, err = repo.HasReviewed(ctx, 2, 3)
	require.NoError(t, err)
	assert.False(t, reviewed)

	reviews, err := repo.ListForReviewee(ctx, 2)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "great", reviews[0].Comment)
}
