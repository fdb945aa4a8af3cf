package viewstate

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
)

func bytesReader(s string) io.Reader { return bytes.NewReader([]byte(s)) }

func TestProfileStreams(t *testing.T) {
	w := newWorld()
	w.papers = samplePapers()[:1]
	w.downloaded = []models.Resource{{ID: "r1", PaperID: 1, Title: "Algorithms Final"}}
	p := NewProfile(w.deps(), 1)
	require.NoError(t, p.Mount(context.Background()))
	defer p.Unmount()

	require.Eventually(t, func() bool {
		st := p.State()
		return st.Phase == PhaseLoaded && len(st.Uploaded) == 1 && len(st.Downloaded) == 1
	}, waitFor, tick)
	w.mu.Lock()
	assert.Equal(t, int64(1), w.paperFilter.UploadedBy)
	w.mu.Unlock()
}

func TestProfileUpdate(t *testing.T) {
	w := newWorld()
	p := NewProfile(w.deps(), 1)
	require.NoError(t, p.Mount(context.Background()))
	defer p.Unmount()

	payload := `{"full_name":"Amina Wanjiru","course":"CS","year_of_study":3,"semester_of_study":2}`
	require.NoError(t, p.Handle(intent("update_profile", payload)))
	require.Eventually(t, func() bool {
		st := p.State()
		return st.Message == "Profile updated" && st.Profile != nil && st.Profile.YearOfStudy == 3
	}, waitFor, tick)
	assert.False(t, p.State().Saving)

	require.NoError(t, p.Handle(intent("clear_messages", "")))
	assert.Empty(t, p.State().Message)
}

func TestProfileUpdateFailure(t *testing.T) {
	w := newWorld()
	w.updateErr = assert.AnError
	p := NewProfile(w.deps(), 1)
	require.NoError(t, p.Mount(context.Background()))
	defer p.Unmount()

	require.NoError(t, p.Handle(intent("update_profile", `{"full_name":"A"}`)))
	require.Eventually(t, func() bool { return !p.State().Saving && p.State().Message != "" }, waitFor, tick)
	assert.NotEqual(t, "Profile updated", p.State().Message)
}
