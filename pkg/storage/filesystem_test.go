package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	assert.Equal(t, "CSC_201_final__2023_.pdf", SanitizeFileName("CSC 201 final (2023).pdf"))
	assert.Equal(t, "file", SanitizeFileName(".."))
	assert.Equal(t, "_etc_passwd", SanitizeFileName("/etc/passwd"))
}

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "past_papers/CSC201/2023/CAT 1/cat_1.pdf", PaperKey("CSC201", 2023, "CAT 1", "cat 1.pdf"))
	assert.Equal(t, "profile_photos/42/profile_1700000000.jpg", ProfilePhotoKey(42, "profile_1700000000.jpg"))
}

func TestUniqueFileName(t *testing.T) {
	assert.Equal(t, "ds_final__2023__a1b2.pdf", UniqueFileName("ds final (2023).pdf", "a1b2"))
	assert.Equal(t, "notes_a1b2", UniqueFileName("notes", "a1b2"))
	assert.Equal(t, ".env_a1b2", UniqueFileName(".env", "a1b2"))
	assert.Equal(t, "final.pdf", UniqueFileName("final.pdf", ""))
	assert.Len(t, NewSuffix(), 12)
	assert.NotEqual(t, NewSuffix(), NewSuffix())
}

func TestFileStoragePutOpenDelete(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir(), "http://localhost:8080/files", NewSignedURLSigner("secret", time.Hour))
	require.NoError(t, err)

	key := PaperKey("MAT101", 2022, "Midterm", "mid term.pdf")
	obj, err := fs.Put(ctx, key, strings.NewReader("%PDF-1.4"), 8, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(8), obj.Size)
	require.True(t, strings.HasPrefix(obj.URL, "http://localhost:8080/files/"))

	resolved, err := fs.Resolve(strings.TrimPrefix(obj.URL, "http://localhost:8080/files/"))
	require.NoError(t, err)
	assert.Equal(t, key, resolved)

	file, err := fs.Open(key)
	require.NoError(t, err)
	body, _ := io.ReadAll(file)
	_ = file.Close()
	assert.Equal(t, "%PDF-1.4", string(body))

	require.NoError(t, fs.Delete(ctx, key))
	exists, err := fs.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, fs.Delete(ctx, key))
}

func TestFileStoragePutNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStorage(t.TempDir(), "http://localhost:8080/files", NewSignedURLSigner("secret", time.Hour))
	require.NoError(t, err)

	key := PaperKey("CSC201", 2023, "Final Exam", "final.pdf")
	_, err = fs.Put(ctx, key, strings.NewReader("AAAA"), 4, "application/pdf")
	require.NoError(t, err)

	_, err = fs.Put(ctx, key, strings.NewReader("BBBB"), 4, "application/pdf")
	require.ErrorIs(t, err, ErrObjectExists)

	file, err := fs.Open(key)
	require.NoError(t, err)
	body, _ := io.ReadAll(file)
	_ = file.Close()
	assert.Equal(t, "AAAA", string(body))
}

func TestFileStorageRejectsShortWrite(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), "", NewSignedURLSigner("secret", time.Hour))
	require.NoError(t, err)
	_, err = fs.Put(context.Background(), "past_papers/x.pdf", strings.NewReader("abc"), 10, "application/pdf")
	require.Error(t, err)
	exists, err := fs.Exists(context.Background(), "past_papers/x.pdf")
	require.NoError(t, err)
	assert.False(t, exists)
}
