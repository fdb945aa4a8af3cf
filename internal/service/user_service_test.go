package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
	"github.com/noah-isme/somashare-api/pkg/storage"
)

func newTestUserService(repo *fakeUserRepo, blobs *memBlobs) *UserService {
	svc := NewUserService(repo, blobs, nil, nil, nil, nil, UserServiceConfig{MaxPhotoBytes: 16})
	svc.suffix = func() string { return "s1" }
	return svc
}

var mePhotoKey = storage.ProfilePhotoKey(1, "me_s1.png")

func TestRegisterCreatesProfileOnce(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestUserService(repo, newMemBlobs())
	req := models.RegisterUserRequest{ExternalID: "sub-1", Email: " Amina@Students.Test ", FullName: "Amina Otieno"}

	user, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "amina@students.test", user.Email)
	assert.Equal(t, 1, user.YearOfStudy)
	assert.Equal(t, 1, user.SemesterOfStudy)

	_, err = svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
}

func TestRegisterValidates(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo(), newMemBlobs())
	_, err := svc.Register(context.Background(), models.RegisterUserRequest{ExternalID: "sub-1", Email: "nope", FullName: "A"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestGetMissingProfile(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo(), newMemBlobs())
	_, err := svc.Get(context.Background(), 99)
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "profile not found", appErr.Message)
}

func TestUpdateProfileRejectsOutOfRangeYear(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, FullName: "Amina", IsActive: true})
	svc := newTestUserService(repo, newMemBlobs())

	_, err := svc.UpdateProfile(context.Background(), 1, models.UpdateProfileRequest{FullName: "Amina", Course: "CS", YearOfStudy: 5, SemesterOfStudy: 1})
	require.Error(t, err)

	user, err := svc.UpdateProfile(context.Background(), 1, models.UpdateProfileRequest{FullName: "Amina", Course: "CS", YearOfStudy: 2, SemesterOfStudy: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, user.YearOfStudy)
}

func TestUploadPhotoReplacesPreviousFile(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, PhotoKey: "profile_photos/1/old.png", IsActive: true})
	blobs := newMemBlobs()
	blobs.objects["profile_photos/1/old.png"] = []byte("old")
	svc := newTestUserService(repo, blobs)

	user, err := svc.UploadPhoto(context.Background(), 1, PhotoUpload{FileName: "me.png", ContentType: "image/png", Size: 3, Content: strings.NewReader("png")})
	require.NoError(t, err)
	assert.Equal(t, mePhotoKey, user.PhotoKey)
	assert.True(t, blobs.has(user.PhotoKey))
	assert.False(t, blobs.has("profile_photos/1/old.png"))
}

func TestUploadPhotoRemovesFileWhenProfileUpdateFails(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, IsActive: true})
	repo.photoErr = errors.New("connection reset")
	blobs := newMemBlobs()
	svc := newTestUserService(repo, blobs)

	_, err := svc.UploadPhoto(context.Background(), 1, PhotoUpload{FileName: "me.png", ContentType: "image/png", Size: 3, Content: strings.NewReader("png")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Photo upload failed: connection reset")
	assert.False(t, blobs.has(mePhotoKey))
	assert.Equal(t, []string{mePhotoKey}, blobs.deleted)
}

func TestUploadPhotoNameClashKeepsCurrentPhoto(t *testing.T) {
	repo := newFakeUserRepo(models.User{ID: 1, PhotoKey: mePhotoKey, IsActive: true})
	blobs := newMemBlobs()
	blobs.objects[mePhotoKey] = []byte("current")
	svc := newTestUserService(repo, blobs)

	_, err := svc.UploadPhoto(context.Background(), 1, PhotoUpload{FileName: "me.png", ContentType: "image/png", Size: 3, Content: strings.NewReader("png")})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConflict.Code))
	assert.Equal(t, []byte("current"), blobs.objects[mePhotoKey])
	assert.Empty(t, blobs.deleted)
}

func TestUploadPhotoLimits(t *testing.T) {
	svc := newTestUserService(newFakeUserRepo(models.User{ID: 1, IsActive: true}), newMemBlobs())

	_, err := svc.UploadPhoto(context.Background(), 1, PhotoUpload{FileName: "a.pdf", ContentType: "application/pdf", Content: strings.NewReader("x")})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnsupportedMedia.Code))

	// Declared size lies; the stream itself is over the limit.
	_, err = svc.UploadPhoto(context.Background(), 1, PhotoUpload{FileName: "a.png", ContentType: "image/png", Size: 1, Content: strings.NewReader(strings.Repeat("x", 64))})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrPayloadTooLarge.Code))
}
