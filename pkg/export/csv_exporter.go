package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter writes a history report as a header row followed by one record
// per paper. Title and generation time are left to the file name.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render encodes report as CSV.
func (e *CSVExporter) Render(report HistoryReport) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(Headers()); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(historyColumns))
	for _, row := range report.Rows {
		for i, c := range historyColumns {
			record[i] = c.value(row)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
