package viewstate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
)

func TestGreeting(t *testing.T) {
	at := func(h int) time.Time { return time.Date(2024, 5, 2, h, 30, 0, 0, time.UTC) }
	assert.Equal(t, "Good morning", Greeting(at(6)))
	assert.Equal(t, "Good afternoon", Greeting(at(12)))
	assert.Equal(t, "Good afternoon", Greeting(at(16)))
	assert.Equal(t, "Good evening", Greeting(at(17)))
}

func unit(id int64, code string, year, semester int) models.UnitItem {
	return models.UnitItem{Unit: models.Unit{ID: id, Code: code, Year: year, Semester: semester}}
}

func TestHomeRecommendsForProfileYear(t *testing.T) {
	w := newWorld()
	w.units = []models.UnitItem{
		unit(1, "CSC201", 2, 1), unit(2, "CSC202", 2, 1), unit(3, "CSC203", 2, 1),
		unit(4, "CSC204", 2, 1), unit(5, "CSC205", 2, 1), unit(6, "CSC301", 3, 1),
	}
	h := NewHome(w.deps(), 1)
	require.NoError(t, h.Mount(context.Background()))
	defer h.Unmount()

	require.Eventually(t, func() bool { return len(h.State().Recommended) == recommendedLimit }, waitFor, tick)
	assert.Equal(t, "Good morning", h.State().Greeting)
	assert.Equal(t, "Amina Otieno", h.State().Profile.FullName)

	w.setUser(func(u *models.User) { u.YearOfStudy = 3 })
	require.Eventually(t, func() bool {
		rec := h.State().Recommended
		return len(rec) == 1 && rec[0].Code == "CSC301"
	}, waitFor, tick)
}

func TestHomeFavoriteRollsBackOnFailure(t *testing.T) {
	w := newWorld()
	w.units = []models.UnitItem{unit(1, "CSC201", 2, 1)}
	w.favoriteErr = assert.AnError
	h := NewHome(w.deps(), 1)
	require.NoError(t, h.Mount(context.Background()))
	defer h.Unmount()
	require.Eventually(t, func() bool { return len(h.State().Recommended) == 1 }, waitFor, tick)

	require.NoError(t, h.Handle(intent("toggle_favorite", `{"unit_id":1}`)))
	require.Eventually(t, func() bool {
		return h.State().Message == "Could not update favorite. Please try again."
	}, waitFor, tick)
	assert.False(t, h.State().Recommended[0].IsFavorite)

	w.mu.Lock()
	assert.Equal(t, []bool{true}, w.favorites)
	w.mu.Unlock()
}

func TestHomeToggleUnknownUnit(t *testing.T) {
	h := NewHome(newWorld().deps(), 1)
	err := h.Handle(intent("toggle_favorite", `{"unit_id":99}`))
	assert.Error(t, err)
}

func TestHomeOpenPaperRecordsView(t *testing.T) {
	w := newWorld()
	h := NewHome(w.deps(), 1)
	require.NoError(t, h.Mount(context.Background()))
	defer h.Unmount()

	require.NoError(t, h.Handle(intent("open_paper", `{"paper_id":7}`)))
	assert.Equal(t, int64(7), h.State().OpenedPaperID)
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		return len(w.views) == 1 && w.views[0] == 7
	}, waitFor, tick)
}
