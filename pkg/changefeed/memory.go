package changefeed

import (
	"context"
	"sync"
)

const defaultBuffer = 16

// Memory is an in-process Feed.
type Memory struct {
	mu     sync.Mutex
	buffer int
	topics map[string]map[*memorySubscription]struct{}
}

// NewMemory builds an in-process feed. buffer <= 0 uses a default.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Memory{buffer: buffer, topics: make(map[string]map[*memorySubscription]struct{})}
}

// Publish notifies every subscriber of the topics. Full subscriber buffers drop the event
// since a pending event already triggers a re-query.
func (m *Memory) Publish(_ context.Context, topics ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, topic := range topics {
		for sub := range m.topics[topic] {
			select {
			case sub.events <- topic:
			default:
			}
		}
	}
	return nil
}

// Subscribe registers for topics. The subscription is released when ctx ends or Close is called.
func (m *Memory) Subscribe(ctx context.Context, topics ...string) (Subscription, error) {
	sub := &memorySubscription{feed: m, topics: topics, events: make(chan string, m.buffer), done: make(chan struct{})}

	m.mu.Lock()
	for _, topic := range topics {
		subs, ok := m.topics[topic]
		if !ok {
			subs = make(map[*memorySubscription]struct{})
			m.topics[topic] = subs
		}
		subs[sub] = struct{}{}
	}
	m.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Close()
		case <-sub.done:
		}
	}()
	return sub, nil
}

// Subscribers returns the number of live subscriptions across all topics.
func (m *Memory) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[*memorySubscription]struct{})
	for _, subs := range m.topics {
		for sub := range subs {
			seen[sub] = struct{}{}
		}
	}
	return len(seen)
}

func (m *Memory) remove(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, topic := range sub.topics {
		subs := m.topics[topic]
		delete(subs, sub)
		if len(subs) == 0 {
			delete(m.topics, topic)
		}
	}
	close(sub.events)
}

type memorySubscription struct {
	feed   *Memory
	topics []string
	events chan string
	done   chan struct{}
	once   sync.Once
}

func (s *memorySubscription) Events() <-chan string {
	return s.events
}

func (s *memorySubscription) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.feed.remove(s)
	})
	return nil
}
