package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("past_papers/CSC201/2023/Final Exam/exam.pdf")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	key, parsedExpiry, err := signer.Parse(token, false)
	require.NoError(t, err)
	require.Equal(t, "past_papers/CSC201/2023/Final Exam/exam.pdf", key)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Minute)
	token, _, err := signer.Generate("profile_photos/7/profile.jpg")
	require.NoError(t, err)
	signer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, _, err = signer.Parse(token, false)
	require.Error(t, err)

	key, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	require.Equal(t, "profile_photos/7/profile.jpg", key)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	other := NewSignedURLSigner("other", time.Hour)
	token, _, err := other.Generate("past_papers/a.pdf")
	require.NoError(t, err)

	_, _, err = signer.Parse(token, false)
	require.Error(t, err)
}
