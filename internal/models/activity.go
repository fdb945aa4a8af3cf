package models

import "time"

// EventKind enumerates the user events recorded against papers.
type EventKind string

const (
	EventView     EventKind = "view"
	EventDownload EventKind = "download"
	EventRating   EventKind = "rating"
	EventUpload   EventKind = "upload"
)

// PaperView is one observed view of a paper.
type PaperView struct {
	ID       int64     `db:"id" json:"id"`
	UserID   int64     `db:"user_id" json:"user_id"`
	PaperID  int64     `db:"paper_id" json:"paper_id"`
	ViewedAt time.Time `db:"viewed_at" json:"viewed_at"`
}

// PaperDownload is one observed download of a paper.
type PaperDownload struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	PaperID      int64     `db:"paper_id" json:"paper_id"`
	DownloadedAt time.Time `db:"downloaded_at" json:"downloaded_at"`
}

// HistoryItem is a view or download joined with the paper it refers to.
type HistoryItem struct {
	EventID    int64     `db:"event_id" json:"event_id"`
	PaperID    int64     `db:"paper_id" json:"paper_id"`
	PaperName  string    `db:"paper_name" json:"paper_name"`
	UnitCode   string    `db:"unit_code" json:"unit_code"`
	PaperType  PaperType `db:"paper_type" json:"paper_type"`
	PaperYear  int       `db:"paper_year" json:"paper_year"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}

// Resource is an entry of the cross-device activity feed held in the document store.
type Resource struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	PaperID   int64     `json:"paper_id"`
	Title     string    `json:"title"`
	UnitCode  string    `json:"unit_code"`
	FileURL   string    `json:"file_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
