package models

import "time"

// VerificationCode is the stored form of a one-time code. Only the hash is kept.
type VerificationCode struct {
	UserID         int64
	CodeHash       string
	FailedAttempts int64
	ExpiresAt      time.Time
	CreatedAt      time.Time
}

// VerificationChallenge is returned after issuing a code. Code is set only outside production.
type VerificationChallenge struct {
	ExpiresAt time.Time `json:"expires_at"`
	Code      string    `json:"code,omitempty"`
}

// VerifyCodeRequest submits a code.
type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}
