package repository

import (
	"context"
	"fmt"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/docstore"
	"github.com/noah-isme/somashare-api/pkg/stream"
)

// ResourceRepository is the cross-device feed of uploaded and downloaded resources.
type ResourceRepository struct {
	store docstore.Store
}

// NewResourceRepository constructs the repository.
func NewResourceRepository(store docstore.Store) *ResourceRepository {
	return &ResourceRepository{store: store}
}

// AddUploaded appends an entry to the uploader's feed.
func (r *ResourceRepository) AddUploaded(ctx context.Context, res models.Resource) (string, error) {
	return r.add(ctx, docstore.CollectionUploadedResources, res)
}

// AddDownloaded appends an entry to the downloader's feed.
func (r *ResourceRepository) AddDownloaded(ctx context.Context, res models.Resource) (string, error) {
	return r.add(ctx, docstore.CollectionDownloadedResources, res)
}

// ListDownloaded returns a user's downloaded resources, newest first.
func (r *ResourceRepository) ListDownloaded(ctx context.Context, userID int64, limit int) ([]models.Resource, error) {
	docs, err := r.store.Find(ctx, feedQuery(docstore.CollectionDownloadedResources, userID, limit))
	if err != nil {
		return nil, fmt.Errorf("list downloaded resources: %w", err)
	}
	return toResources(docs), nil
}

// WatchDownloaded streams a user's downloaded resources, newest first.
func (r *ResourceRepository) WatchDownloaded(ctx context.Context, userID int64, limit int) <-chan stream.Snapshot[[]models.Resource] {
	return stream.Map(ctx, r.store.Watch(ctx, feedQuery(docstore.CollectionDownloadedResources, userID, limit)), toResources)
}

// WatchUploaded streams a user's uploaded resources, newest first.
func (r *ResourceRepository) WatchUploaded(ctx context.Context, userID int64, limit int) <-chan stream.Snapshot[[]models.Resource] {
	return stream.Map(ctx, r.store.Watch(ctx, feedQuery(docstore.CollectionUploadedResources, userID, limit)), toResources)
}

func (r *ResourceRepository) add(ctx context.Context, collection string, res models.Resource) (string, error) {
	id, err := r.store.Add(ctx, collection, docstore.Fields{
		"user_id":    res.UserID,
		"paper_id":   res.PaperID,
		"title":      res.Title,
		"unit_code":  res.UnitCode,
		"file_url":   res.FileURL,
		"created_at": res.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("add %s entry: %w", collection, err)
	}
	return id, nil
}

func feedQuery(collection string, userID int64, limit int) docstore.Query {
	if limit <= 0 {
		limit = 50
	}
	return docstore.NewQuery(collection).Where("user_id", userID).OrderDesc("created_at").Take(limit)
}

func toResources(docs []docstore.Document) []models.Resource {
	out := make([]models.Resource, 0, len(docs))
	for _, doc := range docs {
		out = append(out, models.Resource{
			ID:        doc.ID,
			UserID:    doc.Int64("user_id"),
			PaperID:   doc.Int64("paper_id"),
			Title:     doc.String("title"),
			UnitCode:  doc.String("unit_code"),
			FileURL:   doc.String("file_url"),
			CreatedAt: doc.Time("created_at"),
		})
	}
	return out
}
