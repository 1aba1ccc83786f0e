package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends accepted in STORE_BACKEND.
const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

type Config struct {
	Port                    string
	Env                     string
	LogLevel                string
	StoreBackend            string
	FirebaseCredentialsPath string
	FirebaseProjectID       string
	PostgresConnStr         string
	MongoURI                string
	MongoDatabase           string
	MetricsPort             string
	JWTSecret               string
	JoinCodeAttempts        int
}

// Load reads the configuration from the environment, after loading .env if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using process environment")
	}

	attempts, err := strconv.Atoi(getEnv("JOIN_CODE_ATTEMPTS", "8"))
	if err != nil || attempts < 1 {
		return nil, fmt.Errorf("JOIN_CODE_ATTEMPTS must be a positive integer")
	}

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		StoreBackend:            getEnv("STORE_BACKEND", BackendFirestore),
		FirebaseCredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./firebase_credentials.json"),
		FirebaseProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
		PostgresConnStr:         getEnv("POSTGRES_CONN_STR", ""),
		MongoURI:                getEnv("MONGO_URI", ""),
		MongoDatabase:           getEnv("MONGO_DATABASE", "unicollab"),
		MetricsPort:             getEnv("METRICS_PORT", "9090"),
		JWTSecret:               getEnv("JWT_SECRET", ""),
		JoinCodeAttempts:        attempts,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendFirestore, BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI environment variable not set")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.PostgresConnStr == "" {
		return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable not set")
	}
	return nil
}

// IsProduction reports whether ENV is production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
