package changefeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeliversSubscribedTopics(t *testing.T) {
	feed := NewMemory(4)
	sub, err := feed.Subscribe(context.Background(), "units", "favorites:1")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, feed.Publish(context.Background(), "papers", "favorites:1"))

	select {
	case topic := <-sub.Events():
		assert.Equal(t, "favorites:1", topic)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
	select {
	case topic := <-sub.Events():
		t.Fatalf("unexpected event %s", topic)
	default:
	}
}

func TestMemoryCoalescesWhenFull(t *testing.T) {
	feed := NewMemory(1)
	sub, err := feed.Subscribe(context.Background(), "units")
	require.NoError(t, err)
	defer sub.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, feed.Publish(context.Background(), "units"))
	}
	assert.Len(t, sub.Events(), 1)
}

func TestMemoryReleasesOnContextCancel(t *testing.T) {
	feed := NewMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	sub, err := feed.Subscribe(ctx, "units")
	require.NoError(t, err)
	assert.Equal(t, 1, feed.Subscribers())

	cancel()
	assert.Eventually(t, func() bool { return feed.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	_, open := <-sub.Events()
	assert.False(t, open)
	assert.NoError(t, sub.Close())
}
