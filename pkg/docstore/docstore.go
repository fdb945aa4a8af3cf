// Package docstore is the client for the remote document store: flat documents
// keyed by generated string identifiers, equality queries ordered by a single
// field, and live queries.
package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/somashare-api/pkg/stream"
)

// Collection names of the remote store.
const (
	CollectionUsers               = "users"
	CollectionUnits               = "units"
	CollectionPapers              = "papers"
	CollectionPastPapers          = "past_papers"
	CollectionFavorites           = "favorites"
	CollectionPaperViews          = "paperViews"
	CollectionVerificationCodes   = "verification_codes"
	CollectionUploadedResources   = "uploaded_resources"
	CollectionDownloadedResources = "downloaded_resources"
	CollectionResources           = "resources"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

// Fields is the body of a document.
type Fields map[string]interface{}

// Document is a stored document.
type Document struct {
	ID     string
	Fields Fields
}

// Filter is an equality predicate.
type Filter struct {
	Field string
	Value interface{}
}

// Query selects documents from one collection. Ordering is descending unless Ascending is set;
// ties break on insertion order in the same direction.
type Query struct {
	Collection string
	Filters    []Filter
	OrderBy    string
	Ascending  bool
	Limit      int
}

// NewQuery starts a query over collection.
func NewQuery(collection string) Query {
	return Query{Collection: collection}
}

// Where adds an equality predicate.
func (q Query) Where(field string, value interface{}) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Field: field, Value: value})
	return q
}

// OrderDesc orders by field, newest first.
func (q Query) OrderDesc(field string) Query {
	q.OrderBy, q.Ascending = field, false
	return q
}

// OrderAsc orders by field ascending.
func (q Query) OrderAsc(field string) Query {
	q.OrderBy, q.Ascending = field, true
	return q
}

// Take limits the result size.
func (q Query) Take(n int) Query {
	q.Limit = n
	return q
}

// Store is implemented by every document store backend.
type Store interface {
	Add(ctx context.Context, collection string, fields Fields) (string, error)
	Set(ctx context.Context, collection, id string, fields Fields) error
	Get(ctx context.Context, collection, id string) (*Document, error)
	Update(ctx context.Context, collection, id string, fields Fields) error
	Increment(ctx context.Context, collection, id, field string, delta int64) error
	Delete(ctx context.Context, collection, id string) error
	Find(ctx context.Context, q Query) ([]Document, error)
	// Watch emits the result of q now and after every change to its collection,
	// until ctx ends. The backend's listener is released when the stream ends.
	Watch(ctx context.Context, q Query) <-chan stream.Snapshot[[]Document]
}

// String returns a string field or "".
func (d Document) String(key string) string {
	if v, ok := d.Fields[key].(string); ok {
		return v
	}
	return ""
}

// Int64 returns a numeric field as int64.
func (d Document) Int64(key string) int64 {
	if n, ok := toFloat(d.Fields[key]); ok {
		return int64(n)
	}
	return 0
}

// Bool returns a boolean field.
func (d Document) Bool(key string) bool {
	v, _ := d.Fields[key].(bool)
	return v
}

// Time returns a timestamp field. Numbers are read as unix milliseconds.
func (d Document) Time(key string) time.Time {
	return toTime(d.Fields[key])
}
