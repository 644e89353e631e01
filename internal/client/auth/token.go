package auth

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophmarks/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims the client relies on. Subject is the
// user id the row-level policies compare against.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ParseAccessToken verifies an HS256 access token signed with secret.
// An expired but otherwise valid token yields its claims together with an
// error wrapping common.ErrTokenExpired, so the caller can still see whose
// session needs refreshing.
func ParseAccessToken(token string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)

	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, fmt.Errorf("%w: %v", common.ErrTokenExpired, err)
	default:
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", common.ErrInvalidToken)
	}
	return claims, nil
}
