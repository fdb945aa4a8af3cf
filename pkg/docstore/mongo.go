package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/pkg/stream"
)

// insertedField records insertion order for tie-breaking. It is stripped from returned documents.
const insertedField = "_inserted"

// Mongo is a Store backed by MongoDB. Live queries use change streams, which require a replica set.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
	now    func() time.Time
}

// ConnectMongo dials uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri, database string, timeout time.Duration, logger *zap.Logger) (*Mongo, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Mongo{client: client, db: client.Database(database), logger: logger, now: time.Now}, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Add(ctx context.Context, collection string, fields Fields) (string, error) {
	id := uuid.NewString()
	doc := toBSON(fields)
	doc["_id"] = id
	doc[insertedField] = m.now().UnixNano()
	if _, err := m.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return "", fmt.Errorf("insert %s: %w", collection, err)
	}
	return id, nil
}

func (m *Mongo) Set(ctx context.Context, collection, id string, fields Fields) error {
	doc := toBSON(fields)
	doc["_id"] = id
	doc[insertedField] = m.now().UnixNano()
	opts := options.Replace().SetUpsert(true)
	if _, err := m.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("set %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) Get(ctx context.Context, collection, id string) (*Document, error) {
	var raw bson.M
	err := m.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc := fromBSON(raw)
	return &doc, nil
}

func (m *Mongo) Update(ctx context.Context, collection, id string, fields Fields) error {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": toBSON(fields)})
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Increment(ctx context.Context, collection, id, field string, delta int64) error {
	res, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{field: delta}})
	if err != nil {
		return fmt.Errorf("increment %s/%s.%s: %w", collection, id, field, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *Mongo) Delete(ctx context.Context, collection, id string) error {
	if _, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (m *Mongo) Find(ctx context.Context, q Query) ([]Document, error) {
	filter := bson.D{}
	for _, f := range q.Filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	dir := -1
	if q.Ascending {
		dir = 1
	}
	sortSpec := bson.D{}
	if q.OrderBy != "" {
		sortSpec = append(sortSpec, bson.E{Key: q.OrderBy, Value: dir})
	}
	sortSpec = append(sortSpec, bson.E{Key: insertedField, Value: dir})

	opts := options.Find().SetSort(sortSpec)
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := m.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", q.Collection, err)
	}
	var raws []bson.M
	if err := cursor.All(ctx, &raws); err != nil {
		return nil, fmt.Errorf("decode %s: %w", q.Collection, err)
	}
	docs := make([]Document, len(raws))
	for i, raw := range raws {
		docs[i] = fromBSON(raw)
	}
	return docs, nil
}

// Watch opens a change stream on the query's collection and re-runs the query for every change.
func (m *Mongo) Watch(ctx context.Context, q Query) <-chan stream.Snapshot[[]Document] {
	out := make(chan stream.Snapshot[[]Document], 1)
	go func() {
		defer close(out)
		cs, err := m.db.Collection(q.Collection).Watch(ctx, mongo.Pipeline{})
		if err != nil {
			stream.Send(ctx, out, stream.Snapshot[[]Document]{Err: fmt.Errorf("watch %s: %w", q.Collection, err)})
			return
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := cs.Close(closeCtx); err != nil {
				m.logger.Warn("close change stream", zap.String("collection", q.Collection), zap.Error(err))
			}
		}()

		for {
			docs, err := m.Find(ctx, q)
			if ctx.Err() != nil {
				return
			}
			if !stream.Send(ctx, out, stream.Snapshot[[]Document]{Value: docs, Err: err}) || err != nil {
				return
			}
			if !cs.Next(ctx) {
				if err := cs.Err(); err != nil && ctx.Err() == nil {
					stream.Send(ctx, out, stream.Snapshot[[]Document]{Err: fmt.Errorf("watch %s: %w", q.Collection, err)})
				}
				return
			}
			// drain events already queued so one snapshot covers a burst
			for cs.TryNext(ctx) {
			}
		}
	}()
	return out
}

func toBSON(fields Fields) bson.M {
	doc := make(bson.M, len(fields)+2)
	for k, v := range fields {
		doc[k] = v
	}
	return doc
}

func fromBSON(raw bson.M) Document {
	id, _ := raw["_id"].(string)
	fields := make(Fields, len(raw))
	for k, v := range raw {
		if k == "_id" || k == insertedField {
			continue
		}
		fields[k] = v
	}
	return Document{ID: id, Fields: fields}
}
