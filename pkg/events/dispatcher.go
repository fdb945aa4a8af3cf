package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/pkg/jobs"
)

const activityJob = "activity"

// Dispatcher hands activities to a background worker pool that publishes them with retries.
type Dispatcher struct {
	queue     *jobs.Queue
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewDispatcher wires publisher behind an in-memory queue.
func NewDispatcher(publisher Publisher, cfg jobs.QueueConfig) *Dispatcher {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	d := &Dispatcher{publisher: publisher, logger: cfg.Logger, now: time.Now}
	d.queue = jobs.NewQueue("activity-events", d.handle, cfg)
	return d
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop waits for in-flight publishes.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch queues activity without blocking. A full queue drops the activity and logs it.
func (d *Dispatcher) Dispatch(activity Activity) {
	if activity.OccurredAt.IsZero() {
		activity.OccurredAt = d.now().UTC()
	}
	err := d.queue.TryEnqueue(jobs.Job{ID: uuid.NewString(), Type: activityJob, Payload: activity})
	if err != nil {
		d.logger.Warn("activity event dropped",
			zap.String("kind", activity.Kind),
			zap.Int64("user_id", activity.UserID),
			zap.Error(err),
		)
	}
}

func (d *Dispatcher) handle(ctx context.Context, job jobs.Job) error {
	activity, ok := job.Payload.(Activity)
	if !ok {
		return fmt.Errorf("unexpected payload %T", job.Payload)
	}
	return d.publisher.Publish(ctx, activity)
}
