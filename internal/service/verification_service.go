package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/somashare-api/internal/models"
	"github.com/noah-isme/somashare-api/pkg/changefeed"
	"github.com/noah-isme/somashare-api/pkg/docstore"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
)

const (
	codeDigits         = 6
	defaultMaxAttempts = 5
)

type verificationStore interface {
	Save(ctx context.Context, code models.VerificationCode) error
	Get(ctx context.Context, userID int64) (*models.VerificationCode, error)
	Delete(ctx context.Context, userID int64) error
	RecordFailure(ctx context.Context, userID int64) (int64, error)
}

type verifiedMarker interface {
	MarkVerified(ctx context.Context, id int64) error
}

// VerificationConfig tunes one-time codes.
type VerificationConfig struct {
	CodeTTL    time.Duration
	ExposeCode bool
	HashCost   int
	// MaxAttempts wrong guesses discard the pending code.
	MaxAttempts int
}

// VerificationService issues and checks one-time email verification codes.
type VerificationService struct {
	codes     verificationStore
	users     verifiedMarker
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	cfg       VerificationConfig
	now       func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(codes verificationStore, users verifiedMarker, feed changefeed.Feed, validate *validator.Validate, logger *zap.Logger, cfg VerificationConfig) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 5 * time.Minute
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &VerificationService{
		codes:     codes,
		users:     users,
		notifier:  newNotifier(feed, logger),
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Issue creates a fresh code for the user, replacing any pending one.
func (s *VerificationService) Issue(ctx context.Context, userID int64) (*models.VerificationChallenge, error) {
	code, err := generateCode()
	if err != nil {
		return nil, appErrors.Internal(err, "failed to generate verification code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cfg.HashCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash verification code")
	}
	now := s.now().UTC()
	record := models.VerificationCode{
		UserID:    userID,
		CodeHash:  string(hash),
		ExpiresAt: now.Add(s.cfg.CodeTTL),
		CreatedAt: now,
	}
	if err := s.codes.Save(ctx, record); err != nil {
		return nil, appErrors.Internal(err, "failed to store verification code")
	}
	s.logger.Info("verification code issued", zap.Int64("user_id", userID), zap.Time("expires_at", record.ExpiresAt))

	challenge := &models.VerificationChallenge{ExpiresAt: record.ExpiresAt}
	if s.cfg.ExposeCode {
		challenge.Code = code
	}
	return challenge, nil
}

// Verify accepts code iff a pending record exists, has not expired and matches.
// The record is consumed on success, and discarded after MaxAttempts wrong codes.
func (s *VerificationService) Verify(ctx context.Context, userID int64, req models.VerifyCodeRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "code must be 6 digits")
	}
	record, err := s.codes.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Verification code not found. Please request a new one.")
		}
		return appErrors.Internal(err, "failed to load verification code")
	}
	if !s.now().Before(record.ExpiresAt) {
		return appErrors.Clone(appErrors.ErrExpired, "Verification code expired. Please request a new one.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(req.Code)); err != nil {
		return s.rejectCode(ctx, userID)
	}

	if err := s.codes.Delete(ctx, userID); err != nil {
		return appErrors.Internal(err, "failed to consume verification code")
	}
	if err := s.users.MarkVerified(ctx, userID); err != nil {
		return appErrors.Internal(err, "failed to mark profile verified")
	}
	s.notifier.notify(ctx, userTopic(userID))
	return nil
}

func (s *VerificationService) rejectCode(ctx context.Context, userID int64) error {
	failures, err := s.codes.RecordFailure(ctx, userID)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return appErrors.Clone(appErrors.ErrNotFound, "Verification code not found. Please request a new one.")
		}
		return appErrors.Internal(err, "failed to record verification attempt")
	}
	if failures < int64(s.cfg.MaxAttempts) {
		return appErrors.Clone(appErrors.ErrValidation, "Invalid code. Please try again.")
	}
	if err := s.codes.Delete(ctx, userID); err != nil {
		return appErrors.Internal(err, "failed to discard verification code")
	}
	s.logger.Warn("verification code discarded after too many attempts", zap.Int64("user_id", userID), zap.Int64("attempts", failures))
	return appErrors.Clone(appErrors.ErrValidation, "Too many invalid attempts. Please request a new code.")
}

func generateCode() (string, error) {
	max := big.NewInt(1_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}
