package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
)

const callerKey = "caller"

// AuthConfig configures AuthMiddleware.
type AuthConfig struct {
	JWTSecret string
	Accounts  repositories.AccountRepository
	// Firebase is optional. When set, Firebase ID tokens are accepted as well.
	Firebase IDTokenVerifier
}

// AuthMiddleware resolves the bearer token into a session.Caller stored on the
// echo context. Session tokens are tried first, then Firebase ID tokens.
// WebSocket clients that cannot set headers may pass access_token in the query.
func AuthMiddleware(cfg AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := bearerToken(c)
			if err != nil {
				return err
			}

			caller, err := sessionCaller(cfg, tokenString)
			if err != nil && !errors.Is(err, ErrTokenRevoked) && cfg.Firebase != nil {
				caller, err = firebaseCaller(c.Request().Context(), cfg.Firebase, cfg.Accounts, tokenString)
			}
			if errors.Is(err, ErrTokenRevoked) {
				return echo.NewHTTPError(http.StatusUnauthorized, "Session has ended. Please sign in again.")
			}
			if err != nil {
				slog.Debug("token rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

// CallerFrom returns the authenticated caller, or the zero Caller when the
// request was not authenticated.
func CallerFrom(c echo.Context) session.Caller {
	caller, _ := c.Get(callerKey).(session.Caller)
	return caller
}

// WithCaller stores caller on c. Used by tests and internal routes.
func WithCaller(c echo.Context, caller session.Caller) {
	c.Set(callerKey, caller)
}

func sessionCaller(cfg AuthConfig, tokenString string) (session.Caller, error) {
	claims, err := ParseSessionToken(tokenString, cfg.JWTSecret)
	if err != nil {
		return session.Caller{}, err
	}
	account, err := cfg.Accounts.GetAccountByUID(claims.UID)
	if err != nil {
		return session.Caller{}, err
	}
	if err := checkNotRevoked(claims, account.TokensValidAfter); err != nil {
		return session.Caller{}, err
	}
	return session.Caller{UID: account.UID, Email: account.Email, Provider: session.ProviderPassword}, nil
}

func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("access_token"); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
	}

	// Expecting "Bearer <token>"
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
	}
	return parts[1], nil
}
