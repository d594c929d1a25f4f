package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access-token payload. It intentionally carries identity
// only: groups, profiles and affiliations are loaded fresh per request so a
// revoked role can never outlive a token.
type JWTClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
