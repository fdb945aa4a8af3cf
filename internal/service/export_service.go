package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/export"
)

// Export formats.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

const exportHistoryLimit = 200

type historyReader interface {
	History(ctx context.Context, userID int64, kind models.EventKind, limit int) ([]models.HistoryItem, error)
}

type reportRenderer interface {
	Render(report export.HistoryReport) ([]byte, error)
}

// ExportFile is a rendered export ready to be sent.
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ExportService renders the caller's history to CSV or PDF.
type ExportService struct {
	history historyReader
	csv     reportRenderer
	pdf     reportRenderer
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(history historyReader, logger *zap.Logger, csv, pdf reportRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{history: history, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// History renders the user's views or downloads in format.
func (s *ExportService) History(ctx context.Context, userID int64, kind models.EventKind, format string) (*ExportFile, error) {
	items, err := s.history.History(ctx, userID, kind, exportHistoryLimit)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	report := historyReport(items, kind, now)
	timestamp := now.Format("20060102_150405")
	base := fmt.Sprintf("%s_history_%d_%s", kind, userID, timestamp)

	switch format {
	case FormatCSV, "":
		data, err := s.csv.Render(report)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render csv")
		}
		return &ExportFile{FileName: base + ".csv", ContentType: "text/csv", Data: data}, nil
	case FormatPDF:
		data, err := s.pdf.Render(report)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to render pdf")
		}
		return &ExportFile{FileName: base + ".pdf", ContentType: "application/pdf", Data: data}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func historyReport(items []models.HistoryItem, kind models.EventKind, at time.Time) export.HistoryReport {
	rows := make([]export.HistoryRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, export.HistoryRow{
			Paper: item.PaperName,
			Unit:  item.UnitCode,
			Type:  string(item.PaperType),
			Year:  item.PaperYear,
			At:    item.OccurredAt,
		})
	}
	return export.HistoryReport{Title: historyTitle(kind), GeneratedAt: at, Rows: rows}
}

func historyTitle(kind models.EventKind) string {
	if kind == models.EventView {
		return "Viewed Papers"
	}
	return "Downloaded Papers"
}
