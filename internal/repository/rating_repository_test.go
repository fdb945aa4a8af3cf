package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
)

func TestUpsertRatingUsesConflictClause(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id, paper_id) DO UPDATE SET rating = EXCLUDED.rating")).
		WithArgs(int64(1), int64(2), 4, "clear questions", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "paper_id", "rating", "review_text", "helpful_count", "created_at", "updated_at"}).
			AddRow(8, 1, 2, 4, "clear questions", 3, now, now))

	rating := &models.PaperRating{UserID: 1, PaperID: 2, Rating: 4, ReviewText: "clear questions"}
	require.NoError(t, repo.Upsert(context.Background(), rating))
	assert.Equal(t, int64(8), rating.ID)
	assert.Equal(t, 3, rating.HelpfulCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummariesByPaperIDs(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE paper_id = ANY($1) GROUP BY paper_id")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"paper_id", "average", "count"}).AddRow(2, 4.5, 2))

	summaries, err := repo.SummariesByPaperIDs(context.Background(), []int64{2, 3})
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
	assert.InDelta(t, 4.5, summaries[2].Average, 0.001)
	_, rated := summaries[3]
	assert.False(t, rated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSummariesByPaperIDsSkipsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRatingRepository(db)

	summaries, err := repo.SummariesByPaperIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, summaries)
	assert.NoError(t, mock.ExpectationsWereMet())
}
