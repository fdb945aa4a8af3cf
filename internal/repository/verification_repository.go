package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/docstore"
)

// VerificationRepository keeps one pending code per user in the document store.
type VerificationRepository struct {
	store docstore.Store
}

// NewVerificationRepository constructs the repository.
func NewVerificationRepository(store docstore.Store) *VerificationRepository {
	return &VerificationRepository{store: store}
}

// Save stores code, replacing any pending code of the same user.
func (r *VerificationRepository) Save(ctx context.Context, code models.VerificationCode) error {
	fields := docstore.Fields{
		"user_id":    code.UserID,
		"code_hash":       code.CodeHash,
		"failed_attempts": code.FailedAttempts,
		"expires_at":      code.ExpiresAt,
		"created_at":      code.CreatedAt,
	}
	if err := r.store.Set(ctx, docstore.CollectionVerificationCodes, verificationID(code.UserID), fields); err != nil {
		return fmt.Errorf("save verification code: %w", err)
	}
	return nil
}

// Get returns the pending code of a user or docstore.ErrNotFound.
func (r *VerificationRepository) Get(ctx context.Context, userID int64) (*models.VerificationCode, error) {
	doc, err := r.store.Get(ctx, docstore.CollectionVerificationCodes, verificationID(userID))
	if err != nil {
		return nil, err
	}
	return &models.VerificationCode{
		UserID:         doc.Int64("user_id"),
		CodeHash:       doc.String("code_hash"),
		FailedAttempts: doc.Int64("failed_attempts"),
		ExpiresAt:      doc.Time("expires_at"),
		CreatedAt:      doc.Time("created_at"),
	}, nil
}

// RecordFailure counts a wrong guess against the pending code and returns the
// total so far. It returns docstore.ErrNotFound once the code is gone.
func (r *VerificationRepository) RecordFailure(ctx context.Context, userID int64) (int64, error) {
	id := verificationID(userID)
	if err := r.store.Increment(ctx, docstore.CollectionVerificationCodes, id, "failed_attempts", 1); err != nil {
		return 0, err
	}
	doc, err := r.store.Get(ctx, docstore.CollectionVerificationCodes, id)
	if err != nil {
		return 0, err
	}
	return doc.Int64("failed_attempts"), nil
}

// Delete removes the pending code of a user.
func (r *VerificationRepository) Delete(ctx context.Context, userID int64) error {
	if err := r.store.Delete(ctx, docstore.CollectionVerificationCodes, verificationID(userID)); err != nil {
		return fmt.Errorf("delete verification code: %w", err)
	}
	return nil
}

func verificationID(userID int64) string {
	return strconv.FormatInt(userID, 10)
}
