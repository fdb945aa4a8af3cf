package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/somashare-api/pkg/stream"
)

// Memory is an in-process Store for tests and local development.
type Memory struct {
	mu       sync.RWMutex
	seq      int64
	data     map[string]map[string]*memoryEntry
	watchers map[string]map[chan struct{}]struct{}
}

type memoryEntry struct {
	seq    int64
	fields Fields
}

// NewMemory builds an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		data:     make(map[string]map[string]*memoryEntry),
		watchers: make(map[string]map[chan struct{}]struct{}),
	}
}

func (m *Memory) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	if err := m.Set(ctx, collection, id, fields); err != nil {
		return "", err
	}
	return id, nil
}

func (m *Memory) Set(_ context.Context, collection, id string, fields Fields) error {
	if id == "" {
		return fmt.Errorf("set %s: empty id", collection)
	}
	m.mu.Lock()
	docs, ok := m.data[collection]
	if !ok {
		docs = make(map[string]*memoryEntry)
		m.data[collection] = docs
	}
	m.seq++
	docs[id] = &memoryEntry{seq: m.seq, fields: cloneFields(fields)}
	m.notifyLocked(collection)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, collection, id string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.data[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Document{ID: id, Fields: cloneFields(entry.fields)}, nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields Fields) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		entry.fields[k] = v
	}
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Increment(_ context.Context, collection, id, field string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.data[collection][id]
	if !ok {
		return ErrNotFound
	}
	current, _ := toFloat(entry.fields[field])
	entry.fields[field] = int64(current) + delta
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[collection][id]; !ok {
		return nil
	}
	delete(m.data[collection], id)
	m.notifyLocked(collection)
	return nil
}

func (m *Memory) Find(_ context.Context, q Query) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type match struct {
		id    string
		entry *memoryEntry
	}
	var matches []match
	for id, entry := range m.data[q.Collection] {
		if matchesFilters(entry.fields, q.Filters) {
			matches = append(matches, match{id: id, entry: entry})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i].entry, matches[j].entry
		c := 0
		if q.OrderBy != "" {
			c = compareValues(a.fields[q.OrderBy], b.fields[q.OrderBy])
		}
		if c == 0 {
			c = cmpFloat(float64(a.seq), float64(b.seq))
		}
		if q.Ascending {
			return c < 0
		}
		return c > 0
	})

	if q.Limit > 0 && len(matches) > q.Limit {
		matches = matches[:q.Limit]
	}
	docs := make([]Document, len(matches))
	for i, mt := range matches {
		docs[i] = Document{ID: mt.id, Fields: cloneFields(mt.entry.fields)}
	}
	return docs, nil
}

func (m *Memory) Watch(ctx context.Context, q Query) <-chan stream.Snapshot[[]Document] {
	out := make(chan stream.Snapshot[[]Document], 1)
	signal := make(chan struct{}, 1)

	m.mu.Lock()
	set, ok := m.watchers[q.Collection]
	if !ok {
		set = make(map[chan struct{}]struct{})
		m.watchers[q.Collection] = set
	}
	set[signal] = struct{}{}
	m.mu.Unlock()

	go func() {
		defer close(out)
		defer m.unwatch(q.Collection, signal)
		for {
			docs, err := m.Find(ctx, q)
			if !stream.Send(ctx, out, stream.Snapshot[[]Document]{Value: docs, Err: err}) || err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-signal:
			}
		}
	}()
	return out
}

// Watchers returns the number of open live queries.
func (m *Memory) Watchers() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, set := range m.watchers {
		n += len(set)
	}
	return n
}

func (m *Memory) unwatch(collection string, signal chan struct{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchers[collection], signal)
}

func (m *Memory) notifyLocked(collection string) {
	for signal := range m.watchers[collection] {
		select {
		case signal <- struct{}{}:
		default:
		}
	}
}

func matchesFilters(fields Fields, filters []Filter) bool {
	for _, f := range filters {
		if !valuesEqual(fields[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func cloneFields(fields Fields) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
