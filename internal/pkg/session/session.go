// Package session signs and parses the HS256 tokens used by admin and staff
// routes.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

const defaultTTL = 12 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload. Roles are embedded so permission checks need
// no store lookup.
type Claims struct {
	Roles []domain.Role `json:"roles"`
	jwt.RegisteredClaims
}

// Sign issues a token for p that expires after ttl.
func Sign(secret string, p domain.Principal, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("session: empty signing secret")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := time.Now()
	claims := Claims{
		Roles: p.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("session: sign token: %w", err)
	}
	return signed, nil
}

// Parse validates raw and returns the principal it carries.
func Parse(secret, raw string) (domain.Principal, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tkn.Valid || claims.Subject == "" {
		return domain.Principal{}, ErrInvalidToken
	}
	return domain.Principal{Subject: claims.Subject, Roles: claims.Roles}, nil
}
