// Package events publishes user activity (views, downloads, ratings, uploads)
// to downstream consumers. Delivery is best-effort and never blocks a request.
package events

import (
	"context"
	"time"
)

// Activity is one user action on a paper or unit.
type Activity struct {
	Kind       string            `json:"kind"`
	UserID     int64             `json:"user_id"`
	TargetID   int64             `json:"target_id"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher delivers activities to a broker.
type Publisher interface {
	Publish(ctx context.Context, activity Activity) error
}

// NopPublisher discards every activity.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Activity) error { return nil }
