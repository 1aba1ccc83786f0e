package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/internal/session"
	"golang.org/x/crypto/bcrypt"
)

// errEmailNotVerified is returned when a Firebase identity with an unverified
// email claims the address of an existing account.
var errEmailNotVerified = errors.New("firebase email not verified")

// FirebaseAuth is the part of the Firebase auth client the auth handler uses.
type FirebaseAuth interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	accountRepository repositories.AccountRepository
	userRepository    repositories.UserRepository
	firebaseAuth      FirebaseAuth
	jwtSecret         string
	now               func() time.Time
}

// NewAuthHandler creates a new AuthHandler. firebaseAuth may be nil, which
// disables Firebase login.
func NewAuthHandler(accountRepo repositories.AccountRepository, userRepo repositories.UserRepository, firebaseAuth FirebaseAuth, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		accountRepository: accountRepo,
		userRepository:    userRepo,
		firebaseAuth:      firebaseAuth,
		jwtSecret:         jwtSecret,
		now:               time.Now,
	}
}

// RegisterAuthRoutes registers the unauthenticated routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/signup", h.Signup)
	g.POST("/signin", h.SignIn)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// RegisterSessionRoutes registers the routes that need an authenticated caller
func (h *AuthHandler) RegisterSessionRoutes(g *echo.Group) {
	g.POST("/signout", h.SignOut)
	g.GET("/me", h.Me)
}

// Signup handles local user registration with email and password
func (h *AuthHandler) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	account := &models.Account{
		UID:          uuid.NewString(),
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
	}
	if err := h.accountRepository.CreateAccount(account); err != nil {
		return httpError(err)
	}
	if err := h.userRepository.SetEmail(c.Request().Context(), account.UID, account.Email); err != nil {
		slog.Warn("profile email not recorded", "uid", account.UID, "error", err)
	}

	// Generate and return JWT for the newly registered user
	return h.respondWithToken(c, http.StatusCreated, account)
}

// SignIn handles local user authentication with email and password
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req models.SigninRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	account, err := h.accountRepository.GetAccountByEmail(req.Email)
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}
	if err != nil {
		return httpError(err)
	}
	if account.PasswordHash == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "This account signs in with Firebase")
	}

	// Compare passwords
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid email or password")
	}

	return h.respondWithToken(c, http.StatusOK, account)
}

// FirebaseLogin handles Firebase ID token verification and issues a session token
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	if h.firebaseAuth == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Firebase login is not configured")
	}

	var req models.FirebaseLoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	// Verify Firebase ID token
	token, err := h.firebaseAuth.VerifyIDToken(c.Request().Context(), req.IDToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Firebase ID token")
	}
	firebaseUID := token.UID
	email, _ := token.Claims["email"].(string)
	verified, _ := token.Claims["email_verified"].(bool)

	account, err := h.linkFirebaseAccount(firebaseUID, email, verified)
	if errors.Is(err, errEmailNotVerified) {
		return echo.NewHTTPError(http.StatusConflict, "Verify your email address before signing in to an existing account")
	}
	if err != nil {
		return httpError(err)
	}
	if err := h.userRepository.SetEmail(c.Request().Context(), account.UID, account.Email); err != nil {
		slog.Warn("profile email not recorded", "uid", account.UID, "error", err)
	}

	return h.respondWithToken(c, http.StatusOK, account)
}

// linkFirebaseAccount finds the account by Firebase uid, then by email, and
// creates one keyed by the Firebase uid when neither exists. Only a verified
// email may link to or rewrite an existing account.
func (h *AuthHandler) linkFirebaseAccount(firebaseUID, email string, verified bool) (*models.Account, error) {
	account, err := h.accountRepository.GetAccountByFirebaseUID(firebaseUID)
	if err == nil {
		if verified && email != "" && account.Email != email {
			account.Email = email
			if err := h.accountRepository.UpdateAccount(account); err != nil {
				return nil, err
			}
		}
		return account, nil
	}
	if !errors.Is(err, repositories.ErrAccountNotFound) {
		return nil, err
	}

	if email != "" {
		account, err = h.accountRepository.GetAccountByEmail(email)
		if err == nil {
			if !verified {
				return nil, errEmailNotVerified
			}
			account.FirebaseUID = &firebaseUID
			if err := h.accountRepository.UpdateAccount(account); err != nil {
				return nil, err
			}
			return account, nil
		}
		if !errors.Is(err, repositories.ErrAccountNotFound) {
			return nil, err
		}
	}

	account = &models.Account{
		UID:         firebaseUID,
		Email:       email,
		FirebaseUID: &firebaseUID,
	}
	if err := h.accountRepository.CreateAccount(account); err != nil {
		return nil, err
	}
	return account, nil
}

// SignOut invalidates every session token issued so far and, for Firebase
// users, their Firebase refresh tokens.
func (h *AuthHandler) SignOut(c echo.Context) error {
	caller := middleware.CallerFrom(c)
	uid, err := caller.Require()
	if err != nil {
		return httpError(err)
	}

	account, err := h.accountRepository.GetAccountByUID(uid)
	switch {
	case err == nil:
		if err := h.accountRepository.RevokeTokens(uid, h.now()); err != nil {
			return httpError(err)
		}
	case errors.Is(err, repositories.ErrAccountNotFound) && caller.Provider == session.ProviderFirebase:
	default:
		return httpError(err)
	}

	firebaseUID := ""
	if account != nil && account.FirebaseUID != nil {
		firebaseUID = *account.FirebaseUID
	} else if account == nil {
		firebaseUID = uid
	}
	if firebaseUID != "" && h.firebaseAuth != nil {
		if err := h.firebaseAuth.RevokeRefreshTokens(c.Request().Context(), firebaseUID); err != nil {
			slog.Warn("firebase refresh tokens not revoked", "uid", uid, "error", err)
		}
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the current caller
func (h *AuthHandler) Me(c echo.Context) error {
	caller := middleware.CallerFrom(c)
	if _, err := caller.Require(); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"uid":      caller.UID,
		"email":    caller.Email,
		"provider": caller.Provider,
	})
}

func (h *AuthHandler) respondWithToken(c echo.Context, status int, account *models.Account) error {
	token, err := middleware.IssueSessionToken(account, h.jwtSecret, h.now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}
	return c.JSON(status, echo.Map{"token": token, "uid": account.UID})
}
