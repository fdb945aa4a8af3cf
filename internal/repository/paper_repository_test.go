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

var paperCols = []string{"id", "name", "unit_id", "unit_code", "unit_name", "year_of_study", "semester", "paper_year", "paper_type", "file_key", "file_url", "file_size", "uploaded_by", "download_count", "view_count", "is_verified", "is_active", "upload_date"}

func TestListPapersAndsEveryPredicate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	where := paperFrom + " WHERE 1=1 AND p.year_of_study = $1 AND p.semester = $2 AND p.paper_type = $3 AND p.is_active = TRUE"
	now := time.Now()
	rows := sqlmock.NewRows(paperCols).
		AddRow(3, "Data Structures Midterm", 1, "CSC201", "Data Structures", 2, 1, 2023, "Midterm", "k", "", 1024, nil, 4, 9, true, true, now)
	mock.ExpectQuery(regexp.QuoteMeta(paperSelect + where + " ORDER BY p.upload_date DESC, p.id DESC LIMIT 20 OFFSET 0")).
		WithArgs(2, 1, models.PaperTypeMidterm).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)" + where)).
		WithArgs(2, 1, models.PaperTypeMidterm).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	papers, total, err := repo.List(context.Background(), models.PaperFilter{YearOfStudy: 2, Semester: 1, PaperType: models.PaperTypeMidterm, ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, papers, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, "CSC201", papers[0].UnitCode)
	assert.Nil(t, papers[0].UploadedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPapersRejectsUnknownSort(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY p.upload_date ASC, p.id ASC LIMIT 100 OFFSET 100")).
		WillReturnRows(sqlmock.NewRows(paperCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	_, _, err := repo.List(context.Background(), models.PaperFilter{SortBy: "1; DROP TABLE units", SortOrder: "asc", Page: 2, PageSize: 500})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaper(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	uploader := int64(4)
	mock.ExpectQuery("INSERT INTO past_papers").
		WithArgs("Algorithms Final", int64(1), 2, 1, 2022, models.PaperTypeFinalExam, "past_papers/CSC201/2022/Final Exam/a.pdf", "", int64(2048), &uploader, true, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	paper := &models.PastPaper{Name: "Algorithms Final", UnitID: 1, YearOfStudy: 2, Semester: 1, PaperYear: 2022, PaperType: models.PaperTypeFinalExam, FileKey: "past_papers/CSC201/2022/Final Exam/a.pdf", FileSize: 2048, UploadedBy: &uploader}
	require.NoError(t, repo.Create(context.Background(), paper))
	assert.Equal(t, int64(10), paper.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRecentlyViewedGroupsByPaper(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewPaperRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY paper_id) v ON v.paper_id = p.id")).
		WithArgs(int64(7), 3).
		WillReturnRows(sqlmock.NewRows(paperCols))

	papers, err := repo.ListRecentlyViewed(context.Background(), 7, 0)
	require.NoError(t, err)
	assert.Empty(t, papers)
	assert.NoError(t, mock.ExpectationsWereMet())
}
