package viewstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
)

func fillForm(t *testing.T, u *Upload) {
	t.Helper()
	fields := map[string]string{
		FieldName:        "DS Final",
		FieldUnitCode:    "csc201",
		FieldUnitName:    "Data Structures",
		FieldYearOfStudy: "2",
		FieldSemester:    "1",
		FieldPaperYear:   "2023",
		FieldPaperType:   "Final Exam",
	}
	for field, value := range fields {
		require.NoError(t, u.Handle(intent("set_field", `{"field":"`+field+`","value":"`+value+`"}`)))
	}
}

func mountedUpload(t *testing.T, w *world) *Upload {
	t.Helper()
	u := NewUpload(w.deps(), 1)
	require.NoError(t, u.Mount(context.Background()))
	t.Cleanup(u.Unmount)
	assert.Equal(t, PhaseLoaded, u.State().Phase)
	return u
}

func TestUploadRequiresFields(t *testing.T) {
	u := mountedUpload(t, newWorld())
	require.NoError(t, u.Handle(intent("set_field", `{"field":"name","value":"DS Final"}`)))

	require.NoError(t, u.Handle(intent("submit", "")))
	st := u.State()
	assert.Equal(t, "Please fill in all required fields", st.Message)
	assert.Contains(t, st.FieldErrors, FieldUnitCode)
	assert.Contains(t, st.FieldErrors, FieldFile)
	assert.NotContains(t, st.FieldErrors, FieldName)
	assert.False(t, st.Uploading)
}

func TestUploadFieldNormalization(t *testing.T) {
	u := mountedUpload(t, newWorld())
	require.NoError(t, u.Handle(intent("set_field", `{"field":"unit_code","value":"csc201"}`)))
	require.NoError(t, u.Handle(intent("set_field", `{"field":"paper_year","value":"20a235"}`)))
	assert.Equal(t, "CSC201", u.State().Form.UnitCode)
	assert.Equal(t, "2023", u.State().Form.PaperYear)
	assert.Error(t, u.Handle(intent("set_field", `{"field":"colour","value":"red"}`)))
}

func TestUploadSendsReceivedFile(t *testing.T) {
	w := newWorld()
	u := mountedUpload(t, w)
	fillForm(t, u)

	content := []byte("%PDF-1.4 final exam")
	require.NoError(t, u.Handle(intent("select_file", `{"file_name":"ds_final.pdf","content_type":"application/pdf","size":19}`)))
	assert.False(t, u.State().CanUpload)
	require.NoError(t, u.ReceiveFile(content[:8]))
	require.NoError(t, u.ReceiveFile(content[8:]))
	assert.True(t, u.State().CanUpload)

	require.NoError(t, u.Handle(intent("submit", "")))
	require.Eventually(t, func() bool { return u.State().Success }, waitFor, tick)

	st := u.State()
	assert.Equal(t, 100, st.Progress)
	assert.Equal(t, int64(42), st.PaperID)
	assert.Empty(t, st.Form.Name)
	w.mu.Lock()
	assert.Equal(t, content, w.uploaded)
	assert.Equal(t, "CSC201", w.uploadReq.UnitCode)
	assert.Equal(t, 2023, w.uploadReq.PaperYear)
	w.mu.Unlock()
}

func TestUploadFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"prefixed", appErrors.Clone(appErrors.ErrValidation, "unknown paper type"), "Upload failed: unknown paper type"},
		{"already prefixed", appErrors.Clone(appErrors.ErrInternal, "Upload failed: storage unavailable"), "Upload failed: storage unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld()
			w.uploadErr = tt.err
			u := mountedUpload(t, w)
			fillForm(t, u)
			require.NoError(t, u.Handle(intent("select_file", `{"file_name":"a.pdf","content_type":"application/pdf","size":3}`)))
			require.NoError(t, u.ReceiveFile([]byte("pdf")))

			require.NoError(t, u.Handle(intent("submit", "")))
			require.Eventually(t, func() bool { return u.State().Message == tt.want }, waitFor, tick)
			assert.False(t, u.State().Uploading)
			assert.Equal(t, "DS Final", u.State().Form.Name)
		})
	}
}

func TestUploadFileLimits(t *testing.T) {
	w := newWorld()
	w.maxBytes = 10
	u := mountedUpload(t, w)

	assert.Error(t, u.ReceiveFile([]byte("x")))

	err := u.Handle(intent("select_file", `{"file_name":"big.pdf","size":11}`))
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrPayloadTooLarge.Code, appErr.Code)

	require.NoError(t, u.Handle(intent("select_file", `{"file_name":"a.pdf","size":4}`)))
	assert.Error(t, u.ReceiveFile([]byte("12345")))
}

func TestProgressReader(t *testing.T) {
	var reported []int
	r := &progressReader{r: bytesReader("0123456789"), total: 10, report: func(p int) { reported = append(reported, p) }}
	buf := make([]byte, 5)
	_, _ = r.Read(buf)
	_, _ = r.Read(buf)
	assert.Equal(t, []int{50, 99}, reported)
}
