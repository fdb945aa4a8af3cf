package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/pkg/stream"
)

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	id, err := store.Add(ctx, CollectionUploadedResources, Fields{"userId": int64(4), "title": "CSC201 Final"})
	require.NoError(t, err)

	require.NoError(t, store.Increment(ctx, CollectionUploadedResources, id, "downloads", 2))
	require.NoError(t, store.Update(ctx, CollectionUploadedResources, id, Fields{"title": "CSC201 Final 2023"}))

	doc, err := store.Get(ctx, CollectionUploadedResources, id)
	require.NoError(t, err)
	assert.Equal(t, "CSC201 Final 2023", doc.String("title"))
	assert.Equal(t, int64(2), doc.Int64("downloads"))
	assert.Equal(t, int64(4), doc.Int64("userId"))

	require.NoError(t, store.Delete(ctx, CollectionUploadedResources, id))
	_, err = store.Get(ctx, CollectionUploadedResources, id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, CollectionUploadedResources, id, Fields{}), ErrNotFound)
}

func TestMemoryFindFiltersOrdersAndBreaksTies(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	_, _ = store.Add(ctx, CollectionDownloadedResources, Fields{"userId": int64(1), "title": "a", "at": at})
	_, _ = store.Add(ctx, CollectionDownloadedResources, Fields{"userId": int64(1), "title": "b", "at": at.Add(time.Hour)})
	_, _ = store.Add(ctx, CollectionDownloadedResources, Fields{"userId": int64(1), "title": "c", "at": at})
	_, _ = store.Add(ctx, CollectionDownloadedResources, Fields{"userId": int64(2), "title": "x", "at": at})

	docs, err := store.Find(ctx, NewQuery(CollectionDownloadedResources).Where("userId", 1).OrderDesc("at"))
	require.NoError(t, err)
	titles := make([]string, len(docs))
	for i, d := range docs {
		titles[i] = d.String("title")
	}
	assert.Equal(t, []string{"b", "c", "a"}, titles)

	docs, err = store.Find(ctx, NewQuery(CollectionDownloadedResources).Where("userId", int64(1)).OrderAsc("at").Take(1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].String("title"))
}

func TestMemoryWatchEmitsOnChangeAndReleases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewMemory()
	q := NewQuery(CollectionUploadedResources).Where("userId", int64(9))

	live := store.Watch(ctx, q)
	first, err := stream.First(ctx, live)
	require.NoError(t, err)
	assert.Empty(t, first)

	_, err = store.Add(ctx, CollectionUploadedResources, Fields{"userId": int64(9)})
	require.NoError(t, err)
	second, err := stream.First(ctx, live)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	cancel()
	assert.Eventually(t, func() bool { return store.Watchers() == 0 }, time.Second, 5*time.Millisecond)
}
