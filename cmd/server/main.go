package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/unicollab/backend/internal/docstore"
	firestorestore "github.com/unicollab/backend/internal/docstore/firestore"
	"github.com/unicollab/backend/internal/docstore/memory"
	mongostore "github.com/unicollab/backend/internal/docstore/mongo"
	"github.com/unicollab/backend/internal/router"
	"github.com/unicollab/backend/pkg/config"
	"github.com/unicollab/backend/pkg/firebase"
	"github.com/unicollab/backend/pkg/logging"
	"github.com/unicollab/backend/validators"
)

func main() {
	logging.Setup()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logging.SetupWithLevel(logging.LevelFromString(cfg.LogLevel))

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		slog.Error("failed to initialize databases", "error", err)
		os.Exit(1)
	}
	defer db.CloseDB() // Ensure database connections are closed when main exits

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Firebase is required for the Firestore backend and optional otherwise
	firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath, cfg.FirebaseProjectID)
	if err != nil {
		if cfg.StoreBackend == config.BackendFirestore {
			slog.Error("failed to initialize Firebase", "error", err)
			os.Exit(1)
		}
		slog.Warn("firebase disabled", "error", err)
	}

	store, closeStore, err := openStore(ctx, cfg, db, firebaseApp)
	if err != nil {
		slog.Error("failed to open document store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = validators.NewValidator()

	// Setup global middleware
	config.SetupRequestLogger(e)
	router.SetupMiddleware(e)

	// Setup routes and dependencies
	var authClient *auth.Client
	if firebaseApp != nil {
		authClient = firebaseApp.AuthClient
	}
	if err := router.SetupRoutes(e, db.Postgres, store, authClient, router.Options{
		JWTSecret:        cfg.JWTSecret,
		JoinCodeAttempts: cfg.JoinCodeAttempts,
	}); err != nil {
		slog.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.MetricsPort,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "port", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server failed", "error", err)
		}
	}()

	// Start server
	go func() {
		slog.Info("api server listening", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("api server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("api server shutdown", "error", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown", "error", err)
	}
}

// openStore builds the configured document store, instrumented with metrics.
// The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, db *config.DB, app *firebase.App) (docstore.Store, func(), error) {
	var store docstore.Store
	release := func() {}

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, nil, err
		}
		store = firestorestore.New(client)
		release = func() {
			if err := store.Close(); err != nil {
				slog.Error("closing firestore client", "error", err)
			}
		}
	case config.BackendMongo:
		// the client belongs to db and is disconnected by CloseDB
		store = mongostore.New(db.Mongo, cfg.MongoDatabase)
	default:
		if cfg.IsProduction() {
			slog.Warn("memory document store in production; data is lost on restart")
		}
		store = memory.New()
	}
	return docstore.Instrument(store), release, nil
}
