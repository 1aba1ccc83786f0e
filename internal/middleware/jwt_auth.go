package middleware

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/unicollab/backend/internal/models"
)

// ErrTokenRevoked is returned for session tokens issued before the account signed out.
var ErrTokenRevoked = errors.New("token has been revoked")

// SessionTTL is how long an issued session token stays valid.
const SessionTTL = 72 * time.Hour

// IssueSessionToken signs a session token for the account.
func IssueSessionToken(account *models.Account, secret string, now time.Time) (string, error) {
	claims := &models.JwtCustomClaims{
		UID:        account.UID,
		Email:      account.Email,
		IssuedAtMs: now.UnixMilli(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.UID,
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseSessionToken validates signature and expiry and returns the claims.
func ParseSessionToken(tokenString, secret string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// checkNotRevoked rejects tokens issued at or before validAfter. Tokens
// without iat_ms fall back to iat, and one from the sign-out second is rejected.
func checkNotRevoked(claims *models.JwtCustomClaims, validAfter time.Time) error {
	if validAfter.IsZero() {
		return nil
	}
	if claims.IssuedAtMs > 0 {
		if claims.IssuedAtMs <= validAfter.UnixMilli() {
			return ErrTokenRevoked
		}
		return nil
	}
	if claims.IssuedAt == nil || !claims.IssuedAt.Time.After(validAfter.Truncate(time.Second)) {
		return ErrTokenRevoked
	}
	return nil
}
