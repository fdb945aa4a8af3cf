package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCodeMatchesClones(t *testing.T) {
	err := fmt.Errorf("load unit: %w", Clone(ErrNotFound, "unit not found"))
	assert.True(t, HasCode(err, ErrNotFound.Code))
	assert.False(t, HasCode(err, ErrConflict.Code))
	assert.False(t, HasCode(sql.ErrNoRows, ErrNotFound.Code))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestInternalKeepsTypedErrors(t *testing.T) {
	typed := Clone(ErrValidation, "rating must be between 1 and 5")
	assert.Same(t, typed, Internal(typed, "failed to rate paper"))

	wrapped := Internal(sql.ErrConnDone, "failed to rate paper")
	assert.Equal(t, ErrInternal.Code, wrapped.Code)
	assert.Contains(t, wrapped.Error(), "failed to rate paper")
}
