package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the payload of tokens signed by the identity provider.
// Subject carries the provider's user id; UserID is resolved locally after validation.
type JWTClaims struct {
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	UserID int64  `json:"-"`
	jwt.RegisteredClaims
}

// RoleModerator may verify papers and seed units.
const RoleModerator = "moderator"
