package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrObjectNotFound is returned when a key has no stored object.
	ErrObjectNotFound = errors.New("object not found")
	// ErrObjectExists is returned by Put when the key is already taken.
	ErrObjectExists = errors.New("object already exists")
)

// Object describes a stored blob.
type Object struct {
	Key         string
	URL         string
	Size        int64
	ContentType string
}

// BlobStore is the binary object store for papers and profile photos.
// Put never replaces an existing object.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*Object, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// URL returns a time-limited download link for key.
	URL(ctx context.Context, key string) (string, error)
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFileName replaces every character outside [A-Za-z0-9._-] with an underscore.
func SanitizeFileName(name string) string {
	clean := unsafeChars.ReplaceAllString(name, "_")
	if clean == "" || strings.Trim(clean, ".") == "" {
		return "file"
	}
	return clean
}

// NewSuffix returns a short random token for UniqueFileName.
func NewSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// UniqueFileName sanitizes name and inserts "_"+suffix before its extension,
// so "final exam.pdf" becomes "final_exam_<suffix>.pdf".
func UniqueFileName(name, suffix string) string {
	clean := SanitizeFileName(name)
	if suffix == "" {
		return clean
	}
	ext := path.Ext(clean)
	base := strings.TrimSuffix(clean, ext)
	if base == "" {
		base, ext = clean, ""
	}
	return base + "_" + SanitizeFileName(suffix) + ext
}

// PaperKey is the object key for an exam paper file.
func PaperKey(unitCode string, paperYear int, paperType, fileName string) string {
	return fmt.Sprintf("past_papers/%s/%d/%s/%s", unitCode, paperYear, paperType, SanitizeFileName(fileName))
}

// ProfilePhotoKey is the object key for a user's avatar.
func ProfilePhotoKey(userID int64, fileName string) string {
	return fmt.Sprintf("profile_photos/%d/%s", userID, SanitizeFileName(fileName))
}
