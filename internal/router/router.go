package router

import (
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	eMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/unicollab/backend/internal/docstore"
	"github.com/unicollab/backend/internal/handlers"
	"github.com/unicollab/backend/internal/middleware"
	"github.com/unicollab/backend/internal/models"
	"github.com/unicollab/backend/internal/repositories"
	"gorm.io/gorm"
)

// Options carries the settings routes need beyond their stores.
type Options struct {
	JWTSecret        string
	JoinCodeAttempts int
}

// SetupMiddleware configures global Echo middleware
func SetupMiddleware(e *echo.Echo) {
	e.Use(middleware.MetricsMiddleware())
	e.Use(eMiddleware.Recover())
	e.Use(eMiddleware.CORS())
	slog.Debug("global middleware configured")
}

// SetupRoutes configures all application routes and injects dependencies.
// firebaseAuthClient may be nil, which disables Firebase login.
func SetupRoutes(e *echo.Echo, pgdb *gorm.DB, store docstore.Store, firebaseAuthClient *auth.Client, opts Options) error {
	// AutoMigrate PostgreSQL models
	if err := pgdb.AutoMigrate(&models.Account{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	slog.Info("PostgreSQL auto-migrations completed")

	// --- Initialize Repositories ---
	accountRepo := repositories.NewPostgresAccountRepository(pgdb)
	return registerRoutes(e, accountRepo, store, firebaseAuthClient, opts)
}

func registerRoutes(e *echo.Echo, accountRepo repositories.AccountRepository, store docstore.Store, firebaseAuthClient *auth.Client, opts Options) error {
	if opts.JWTSecret == "" {
		return fmt.Errorf("jwt secret is required")
	}

	userRepo := repositories.NewDocUserRepository(store)
	groupRepo := repositories.NewDocGroupRepository(store, repositories.WithJoinCodeAttempts(opts.JoinCodeAttempts))
	chatRepo := repositories.NewDocChatRepository(store)
	directChatRepo := repositories.NewDocDirectChatRepository(store)
	tournamentRepo := repositories.NewDocTournamentRepository(store)
	walletRepo := repositories.NewDocWalletRepository(store)
	friendshipRepo := repositories.NewDocFriendshipRepository(store)

	// a nil *auth.Client must stay a nil interface
	authCfg := middleware.AuthConfig{JWTSecret: opts.JWTSecret, Accounts: accountRepo}
	var firebaseAuth handlers.FirebaseAuth
	if firebaseAuthClient != nil {
		authCfg.Firebase = firebaseAuthClient
		firebaseAuth = firebaseAuthClient
	}

	// Health check - always accessible
	e.GET("/health", handlers.NewHealthHandler(store).HealthCheck)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	authHandler := handlers.NewAuthHandler(accountRepo, userRepo, firebaseAuth, opts.JWTSecret)
	authHandler.RegisterAuthRoutes(authGroup)

	// --- Protected routes ---
	requireAuth := middleware.AuthMiddleware(authCfg)
	authHandler.RegisterSessionRoutes(e.Group("/api/v1/auth", requireAuth))

	api := e.Group("/api/v1", requireAuth)
	handlers.NewUserHandler(userRepo).RegisterUserRoutes(api)
	handlers.NewGroupHandler(groupRepo).RegisterGroupRoutes(api)
	handlers.NewChatHandler(groupRepo, chatRepo, directChatRepo).RegisterChatRoutes(api)
	handlers.NewTournamentHandler(groupRepo, tournamentRepo).RegisterTournamentRoutes(api)
	handlers.NewWalletHandler(walletRepo).RegisterWalletRoutes(api)
	handlers.NewFriendshipHandler(friendshipRepo).RegisterFriendshipRoutes(api)
	handlers.NewLiveHandler(store, groupRepo, chatRepo, directChatRepo, tournamentRepo).RegisterLiveRoutes(api)

	slog.Info("all routes configured", "routes", len(e.Routes()))
	return nil
}
