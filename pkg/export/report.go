package export

import (
	"strconv"
	"time"
)

// DateLayout formats event times in exports.
const DateLayout = "2006-01-02 15:04"

// HistoryRow is one viewed or downloaded paper.
type HistoryRow struct {
	Paper string
	Unit  string
	Type  string
	Year  int
	At    time.Time
}

// HistoryReport is a user's history as exported to a file.
type HistoryReport struct {
	Title       string
	GeneratedAt time.Time
	Rows        []HistoryRow
}

type column struct {
	header string
	width  float64
	value  func(HistoryRow) string
}

// Widths are in millimetres and fill an A4 page between 10mm margins.
var historyColumns = []column{
	{header: "Paper", width: 78, value: func(r HistoryRow) string { return r.Paper }},
	{header: "Unit", width: 24, value: func(r HistoryRow) string { return r.Unit }},
	{header: "Type", width: 36, value: func(r HistoryRow) string { return r.Type }},
	{header: "Year", width: 16, value: func(r HistoryRow) string { return yearCell(r.Year) }},
	{header: "Date", width: 36, value: func(r HistoryRow) string { return dateCell(r.At) }},
}

// Headers lists the exported column names in order.
func Headers() []string {
	out := make([]string, len(historyColumns))
	for i, c := range historyColumns {
		out[i] = c.header
	}
	return out
}

func yearCell(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func dateCell(at time.Time) string {
	if at.IsZero() {
		return ""
	}
	return at.UTC().Format(DateLayout)
}
