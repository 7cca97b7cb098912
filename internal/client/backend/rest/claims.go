package rest

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/notekeeper/internal/client/backend"
)

// tokenClaims is the subset of the access-token claims the client reads.
type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// parseClaims decodes the access token without verifying its signature;
// verification is the backend's job.
func parseClaims(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return claims, nil
}

// userFromToken derives the user from token claims when the auth response
// omits it.
func userFromToken(token string) (*backend.User, int64, error) {
	claims, err := parseClaims(token)
	if err != nil {
		return nil, 0, err
	}
	var exp int64
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}
	if claims.Subject == "" {
		return nil, exp, nil
	}
	return &backend.User{ID: claims.Subject, Email: claims.Email}, exp, nil
}
