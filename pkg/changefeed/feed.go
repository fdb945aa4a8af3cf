// Package changefeed fans out entity store invalidations to live queries.
//
// Writers publish a topic after a successful write. Readers subscribe to the
// topics their query depends on and re-run the query when one fires. Events
// carry only the topic name, so a slow subscriber may see several writes
// collapsed into one event.
package changefeed

import "context"

// Feed broadcasts invalidation topics to subscribers.
type Feed interface {
	Publish(ctx context.Context, topics ...string) error
	Subscribe(ctx context.Context, topics ...string) (Subscription, error)
}

// Subscription delivers topic names until it is closed or its context ends.
// Close is idempotent and must be called to release the underlying listener.
type Subscription interface {
	Events() <-chan string
	Close() error
}
