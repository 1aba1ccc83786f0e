package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/unicollab/backend/internal/docstore/memory"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"github.com/unicollab/backend/validators"
)

const testSecret = "handler-test-secret"

type fakeAccounts struct {
	mu    sync.Mutex
	byUID map[string]*models.Account
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byUID: make(map[string]*models.Account)}
}

func (f *fakeAccounts) CreateAccount(account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	account.Email = strings.ToLower(account.Email)
	for _, a := range f.byUID {
		if a.Email == account.Email {
			return repositories.ErrAccountExists
		}
	}
	cp := *account
	f.byUID[account.UID] = &cp
	return nil
}

func (f *fakeAccounts) find(match func(*models.Account) bool) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byUID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrAccountNotFound
}

func (f *fakeAccounts) GetAccountByUID(uid string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.UID == uid })
}

func (f *fakeAccounts) GetAccountByEmail(email string) (*models.Account, error) {
	email = strings.ToLower(email)
	return f.find(func(a *models.Account) bool { return a.Email == email })
}

func (f *fakeAccounts) GetAccountByFirebaseUID(firebaseUID string) (*models.Account, error) {
	return f.find(func(a *models.Account) bool { return a.FirebaseUID != nil && *a.FirebaseUID == firebaseUID })
}

func (f *fakeAccounts) UpdateAccount(account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *account
	f.byUID[account.UID] = &cp
	return nil
}

func (f *fakeAccounts) RevokeTokens(uid string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byUID[uid]
	if !ok {
		return repositories.ErrAccountNotFound
	}
	a.TokensValidAfter = at
	return nil
}

// fakeFirebase verifies ID tokens by looking them up in a fixed table.
type fakeFirebase map[string]*auth.Token

func (f fakeFirebase) VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	token, ok := f[idToken]
	if !ok {
		return nil, errors.New("unknown id token")
	}
	return token, nil
}

func (f fakeFirebase) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return nil
}

type testServer struct {
	e     *echo.Echo
	store *memory.Store
	auth  *AuthHandler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New()
	accounts := newFakeAccounts()

	e := echo.New()
	e.Validator = validators.NewValidator()

	userRepo := repositories.NewDocUserRepository(store)
	groupRepo := repositories.NewDocGroupRepository(store)
	chatRepo := repositories.NewDocChatRepository(store)
	directRepo := repositories.NewDocDirectChatRepository(store)
	tournamentRepo := repositories.NewDocTournamentRepository(store)

	auth := NewAuthHandler(accounts, userRepo, nil, testSecret)
	auth.RegisterAuthRoutes(e.Group("/auth"))

	api := e.Group("/api", middleware.AuthMiddleware(middleware.AuthConfig{JWTSecret: testSecret, Accounts: accounts}))
	auth.RegisterSessionRoutes(api)
	NewUserHandler(userRepo).RegisterUserRoutes(api)
	NewGroupHandler(groupRepo).RegisterGroupRoutes(api)
	NewChatHandler(groupRepo, chatRepo, directRepo).RegisterChatRoutes(api)
	NewTournamentHandler(groupRepo, tournamentRepo).RegisterTournamentRoutes(api)
	NewWalletHandler(repositories.NewDocWalletRepository(store)).RegisterWalletRoutes(api)
	NewFriendshipHandler(repositories.NewDocFriendshipRepository(store)).RegisterFriendshipRoutes(api)
	NewLiveHandler(store, groupRepo, chatRepo, directRepo, tournamentRepo).RegisterLiveRoutes(api)

	t.Cleanup(func() { store.Close() })
	return &testServer{e: e, store: store, auth: auth}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// signup registers email and returns its session token and uid.
func (s *testServer) signup(t *testing.T, email string) (string, string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/auth/signup", "", echo.Map{
		"email": email, "password": "secret123", "confirm": "secret123",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("signup %s: status %d body %s", email, rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
		UID   string `json:"uid"`
	}
	decode(t, rec, &out)
	return out.Token, out.UID
}

// createGroup creates a group owned by the token's user.
func (s *testServer) createGroup(t *testing.T, token, name string) models.Group {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/groups", token, echo.Map{"name": name})
	expectStatus(t, rec, http.StatusCreated)
	var group models.Group
	decode(t, rec, &group)
	return group
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
