package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/somashare-api/internal/models"
	appErrors "github.com/noah-isme/somashare-api/pkg/errors"
)

type subjectResolver interface {
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// AuthConfig configures validation of identity provider tokens.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

// AuthService validates tokens issued by the external identity provider.
// Token issuance lives with the provider.
type AuthService struct {
	users  subjectResolver
	config AuthConfig
}

// NewAuthService constructs an AuthService.
func NewAuthService(users subjectResolver, cfg AuthConfig) *AuthService {
	return &AuthService{users: users, config: cfg}
}

// ValidateToken parses and validates an HS256 token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.config.Issuer))
	}
	if s.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(s.config.Audience))
	}

	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, opts...)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// ResolveUser fills claims.UserID from the registered profile of the token subject.
// Unregistered subjects keep UserID zero so that they can still reach registration.
func (s *AuthService) ResolveUser(ctx context.Context, claims *models.JWTClaims) error {
	user, err := s.users.FindByExternalID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Internal(err, "failed to resolve user")
	}
	if !user.IsActive {
		return appErrors.ErrInactiveAccount
	}
	claims.UserID = user.ID
	return nil
}
