// Package auth hashes account passwords and issues the bearer tokens used by
// the JSON API. Browser pages use server-side sessions instead.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 6
	// bcrypt ignores everything past 72 bytes
	maxPasswordLen = 72

	Issuer = "homecare-dashboard"
)

var (
	ErrBadToken      = errors.New("invalid token")
	ErrPasswordShort = fmt.Errorf("password must be at least %d characters", MinPasswordLen)
	ErrPasswordLong  = fmt.Errorf("password must be at most %d bytes", maxPasswordLen)
)

func HashPassword(pw string) (string, error) {
	switch {
	case len(pw) < MinPasswordLen:
		return "", ErrPasswordShort
	case len(pw) > maxPasswordLen:
		return "", ErrPasswordLong
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword reports whether pw matches hash. An empty hash never matches.
func CheckPassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

type Claims struct {
	UserID string `json:"uid"`
	Name   string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// MakeToken issues an API bearer token for uid valid for ttl.
func MakeToken(uid, name, secret string, ttl time.Duration) (string, error) {
	issued := time.Now()
	claims := &Claims{UserID: uid, Name: name}
	claims.Issuer = Issuer
	claims.Subject = uid
	claims.IssuedAt = jwt.NewNumericDate(issued)
	claims.ExpiresAt = jwt.NewNumericDate(issued.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithIssuer(Issuer),
	jwt.WithExpirationRequired(),
)

// ParseToken verifies raw and returns its claims. Only HS256 tokens issued
// by MakeToken are accepted.
func ParseToken(raw, secret string) (*Claims, error) {
	claims := &Claims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadToken, err)
	}
	if claims.UserID == "" || claims.UserID != claims.Subject {
		return nil, ErrBadToken
	}
	return claims, nil
}
