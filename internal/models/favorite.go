package models

import "time"

// Favorite marks a unit as favorited by a user.
type Favorite struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	UnitID    int64     `db:"unit_id" json:"unit_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FavoriteUnit is a favorited unit with the time it was favorited.
type FavoriteUnit struct {
	Unit
	FavoritedAt time.Time `db:"favorited_at" json:"favorited_at"`
}

// FavoriteStatus is the result of a toggle.
type FavoriteStatus struct {
	UnitID     int64 `json:"unit_id"`
	IsFavorite bool  `json:"is_favorite"`
}
