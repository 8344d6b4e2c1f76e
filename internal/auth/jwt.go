// Package auth issues and validates the bearer tokens that carry the
// owner identity. Every stored record is scoped by that owner id; the
// token is the only place it comes from.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the owner identity inside a signed token.
type Claims struct {
	OwnerID string `json:"oid"`
	jwt.RegisteredClaims
}

// Manager signs and validates owner tokens with a single shared secret.
type Manager struct {
	secret []byte
	expiry time.Duration
}

func NewManager(secret string, expiry time.Duration) *Manager {
	return &Manager{secret: []byte(secret), expiry: expiry}
}

// Token is an issued owner token and its lifetime.
type Token struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Issue signs a token for an owner id. The service itself has no login
// flow; whoever authenticates users (the host application or an identity
// service holding the same secret) issues tokens out of band, and this
// method exists for that issuer and for tests.
func (m *Manager) Issue(ownerID string) (*Token, error) {
	now := time.Now()
	claims := Claims{
		OwnerID: ownerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "mnemo",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("signing token: %w", err)
	}
	return &Token{
		AccessToken: signed,
		ExpiresIn:   int64(m.expiry.Seconds()),
	}, nil
}

func (m *Manager) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OwnerID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
