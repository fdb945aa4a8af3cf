package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/export"
)

type stubHistory struct {
	items []models.HistoryItem
}

func (s stubHistory) History(ctx context.Context, userID int64, kind models.EventKind, limit int) ([]models.HistoryItem, error) {
	return s.items, nil
}

func TestExportHistoryCSV(t *testing.T) {
	at := time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)
	svc := NewExportService(stubHistory{items: []models.HistoryItem{
		{PaperName: "Algorithms, Final", UnitCode: "CSC201", PaperType: models.PaperTypeFinalExam, PaperYear: 2023, OccurredAt: at},
	}}, nil, nil, nil)
	svc.now = func() time.Time { return at }

	file, err := svc.History(context.Background(), 5, models.EventDownload, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "download_history_5_20240502_143000.csv", file.FileName)
	assert.Equal(t, "text/csv", file.ContentType)

	lines := strings.Split(strings.TrimSpace(string(file.Data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Paper,Unit,Type,Year,Date", lines[0])
	assert.Equal(t, `"Algorithms, Final",CSC201,Final Exam,2023,2024-05-02 14:30`, lines[1])
}

func TestExportHistoryPDF(t *testing.T) {
	svc := NewExportService(stubHistory{}, nil, nil, nil)
	file, err := svc.History(context.Background(), 5, models.EventView, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(string(file.Data), "%PDF"))
}

func TestExportHistoryUnknownFormat(t *testing.T) {
	svc := NewExportService(stubHistory{}, nil, nil, nil)
	_, err := svc.History(context.Background(), 5, models.EventView, "xlsx")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

type capturingRenderer struct {
	report export.HistoryReport
}

func (r *capturingRenderer) Render(report export.HistoryReport) ([]byte, error) {
	r.report = report
	return []byte("%PDF-1.3"), nil
}

func TestExportHistoryPDFCarriesTitleAndGeneratedAt(t *testing.T) {
	at := time.Date(2024, 5, 2, 14, 30, 0, 0, time.UTC)
	pdf := &capturingRenderer{}
	svc := NewExportService(stubHistory{items: []models.HistoryItem{
		{PaperName: "Operating Systems CAT", UnitCode: "CSC301", PaperType: models.PaperTypeCAT1, PaperYear: 2022, OccurredAt: at},
	}}, nil, nil, pdf)
	svc.now = func() time.Time { return at }

	file, err := svc.History(context.Background(), 5, models.EventView, FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "view_history_5_20240502_143000.pdf", file.FileName)
	assert.Equal(t, "Viewed Papers", pdf.report.Title)
	assert.Equal(t, at, pdf.report.GeneratedAt)
	require.Len(t, pdf.report.Rows, 1)
	assert.Equal(t, export.HistoryRow{Paper: "Operating Systems CAT", Unit: "CSC301", Type: "CAT 1", Year: 2022, At: at}, pdf.report.Rows[0])
}
