package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertDownloadReturnsRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO paper_downloads (user_id, paper_id) VALUES ($1, $2) RETURNING id, user_id, paper_id, downloaded_at")).
		WithArgs(int64(1), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "paper_id", "downloaded_at"}).AddRow(30, 1, 9, now))

	download, err := repo.InsertDownload(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(30), download.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListViewsNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY v.viewed_at DESC, v.id DESC")).
		WithArgs(int64(1), 50).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "paper_id", "paper_name", "unit_code", "paper_type", "paper_year", "occurred_at"}).
			AddRow(2, 9, "Algorithms Final", "CSC201", "Final Exam", 2022, now).
			AddRow(1, 4, "Networks CAT 1", "CSC311", "CAT 1", 2021, now))

	items, err := repo.ListViews(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(9), items[0].PaperID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClearDownloadsReportsCount(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewActivityRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM paper_downloads WHERE user_id = $1")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.ClearDownloads(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
