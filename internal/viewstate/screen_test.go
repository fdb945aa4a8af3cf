package viewstate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
)

func TestFactory(t *testing.T) {
	f := NewFactory(newWorld().deps())

	for _, name := range []string{ScreenHome, ScreenSearch, ScreenUpload, ScreenProfile} {
		s, err := f.New(name, 1, nil)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}

	s, err := f.New(ScreenUnitDetail, 1, map[string]string{"unit_id": "3"})
	require.NoError(t, err)
	assert.Equal(t, ScreenUnitDetail, s.Name())

	_, err = f.New(ScreenUnitDetail, 1, map[string]string{"unit_id": "abc"})
	assert.Error(t, err)

	_, err = f.New("settings", 1, nil)
	assert.ErrorIs(t, err, ErrUnknownScreen)
}

func TestUnmountReleasesSubscriptions(t *testing.T) {
	w := newWorld()
	w.units = []models.UnitItem{unit(1, "CSC201", 2, 1)}
	f := NewFactory(w.deps())

	for _, name := range []string{ScreenHome, ScreenSearch, ScreenProfile} {
		t.Run(name, func(t *testing.T) {
			s, err := f.New(name, 1, nil)
			require.NoError(t, err)
			require.NoError(t, s.Mount(context.Background()))
			require.Eventually(t, func() bool { return w.feed.Subscribers() > 0 }, waitFor, tick)

			s.Unmount()
			assert.Eventually(t, func() bool { return w.feed.Subscribers() == 0 }, waitFor, tick)

			for range s.Updates() {
			}
			_, open := <-s.Updates()
			assert.False(t, open)
		})
	}
}

func TestMountTwice(t *testing.T) {
	s := NewSearch(newWorld().deps(), 1)
	require.NoError(t, s.Mount(context.Background()))
	defer s.Unmount()
	assert.Error(t, s.Mount(context.Background()))
}

func TestUnitDetail(t *testing.T) {
	w := newWorld()
	w.view = models.UnitView{Unit: models.Unit{ID: 3, Code: "CSC201"}, Lecturers: []models.AssignedLecturer{}}
	w.papers = samplePapers()[:2]
	u := NewUnitDetail(w.deps(), 1, 3)
	require.NoError(t, u.Mount(context.Background()))
	defer u.Unmount()

	require.Eventually(t, func() bool {
		st := u.State()
		return st.Phase == PhaseLoaded && len(st.Papers) == 2
	}, waitFor, tick)

	require.NoError(t, u.Handle(intent("toggle_favorite", "")))
	assert.True(t, u.State().View.IsFavorite)

	require.NoError(t, u.Handle(intent("rate_paper", `{"paper_id":1,"rating":4}`)))
	require.Eventually(t, func() bool { return u.State().Message == "Thanks for rating this paper." }, waitFor, tick)
}
