package changefeed

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Redis is a Feed backed by Redis pub/sub so invalidations reach every API instance.
type Redis struct {
	client *redis.Client
	prefix string
	buffer int
}

// NewRedis builds a Redis feed. Channel names are "<prefix>:<topic>".
func NewRedis(client *redis.Client, prefix string, buffer int) *Redis {
	if prefix == "" {
		prefix = "changefeed"
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Redis{client: client, prefix: prefix, buffer: buffer}
}

// Publish sends one message per topic.
func (r *Redis) Publish(ctx context.Context, topics ...string) error {
	for _, topic := range topics {
		if err := r.client.Publish(ctx, r.channel(topic), topic).Err(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}
	return nil
}

// Subscribe opens a pub/sub connection for topics and waits for the server to confirm it.
func (r *Redis) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	channels := make([]string, len(topics))
	for i, topic := range topics {
		channels[i] = r.channel(topic)
	}
	pubsub := r.client.Subscribe(ctx, channels...)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", strings.Join(topics, ","), err)
	}

	sub := &redisSubscription{pubsub: pubsub, events: make(chan string, r.buffer), done: make(chan struct{})}
	go sub.forward(ctx, r.prefix+":")
	return sub, nil
}

func (r *Redis) channel(topic string) string {
	return r.prefix + ":" + topic
}

type redisSubscription struct {
	pubsub *redis.PubSub
	events chan string
	done   chan struct{}
	once   sync.Once
}

func (s *redisSubscription) forward(ctx context.Context, prefix string) {
	defer close(s.events)
	messages := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = s.Close()
			return
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			select {
			case s.events <- strings.TrimPrefix(msg.Channel, prefix):
			default:
			}
		}
	}
}

func (s *redisSubscription) Events() <-chan string {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.pubsub.Close()
	})
	return err
}
