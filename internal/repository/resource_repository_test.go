package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/docstore"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

func TestVerificationRepositoryRoundTrip(t *testing.T) {
	store := docstore.NewMemory()
	repo := NewVerificationRepository(store)
	ctx := context.Background()
	expires := time.Date(2024, 5, 1, 10, 5, 0, 0, time.UTC)

	require.NoError(t, repo.Save(ctx, models.VerificationCode{UserID: 3, CodeHash: "hash", ExpiresAt: expires}))
	code, err := repo.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "hash", code.CodeHash)
	assert.True(t, code.ExpiresAt.Equal(expires))

	require.NoError(t, repo.Delete(ctx, 3))
	_, err = repo.Get(ctx, 3)
	assert.True(t, errors.Is(err, docstore.ErrNotFound))
}

func TestResourceRepositoryFeedIsPerUserNewestFirst(t *testing.T) {
	store := docstore.NewMemory()
	repo := NewResourceRepository(store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	_, err := repo.AddDownloaded(ctx, models.Resource{UserID: 1, PaperID: 1, Title: "old", CreatedAt: base})
	require.NoError(t, err)
	_, err = repo.AddDownloaded(ctx, models.Resource{UserID: 2, PaperID: 2, Title: "other user", CreatedAt: base})
	require.NoError(t, err)

	feed := repo.WatchDownloaded(ctx, 1, 10)
	first, err := stream.First(ctx, feed)
	require.NoError(t, err)
	require.Len(t, first, 1)

	_, err = repo.AddDownloaded(ctx, models.Resource{UserID: 1, PaperID: 3, Title: "new", CreatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	next, err := stream.First(ctx, feed)
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "new", next[0].Title)
	assert.Equal(t, "old", next[1].Title)
}
