package notewell

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell/pkg/ai"
	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/store"
	"github.com/notewell/notewell/pkg/store/postgres"
	surrealstore "github.com/notewell/notewell/pkg/store/surrealdb"
)

// Config holds everything the server needs, populated from flags and
// environment variables by Parse.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// Memory selects the in-memory store. Data is lost on exit; meant for
	// development and tests.
	Memory bool

	// PostgresDSN selects the PostgreSQL backend when non-empty.
	PostgresDSN string

	// SurrealDB connection settings, used when neither Memory nor
	// PostgresDSN is set.
	SurrealURL  string
	SurrealNS   string
	SurrealDB   string
	SurrealUser string
	SurrealPass string

	// GeminiAPIKey is the server-side default for AI endpoints. Requests
	// may carry their own key, which takes precedence.
	GeminiAPIKey string
}

// App is the running server: a storage backend, active sessions, and a
// factory for per-request AI generators.
type App struct {
	config *Config
	store  store.Store
	log    zerolog.Logger

	sessionMu sync.RWMutex
	sessions  map[string]*models.User

	// newGenerator builds a text generator for the given API key. Tests
	// replace it with a canned generator.
	newGenerator func(ctx context.Context, apiKey string) (ai.Generator, error)
}

// New creates an App with the storage backend the config selects.
func New(ctx context.Context, config *Config, log zerolog.Logger) (*App, error) {
	var (
		st  store.Store
		err error
	)
	switch {
	case config.Memory:
		st = store.NewMemStore()
	case config.PostgresDSN != "":
		st, err = postgres.NewPostgresStore(config.PostgresDSN)
	default:
		st, err = surrealstore.NewSurrealStore(config.SurrealURL,
			config.SurrealNS, config.SurrealDB, config.SurrealUser, config.SurrealPass)
	}
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	return &App{
		config:   config,
		store:    st,
		log:      log,
		sessions: make(map[string]*models.User),
		newGenerator: func(ctx context.Context, apiKey string) (ai.Generator, error) {
			return ai.NewGeminiGenerator(ctx, apiKey)
		},
	}, nil
}

// Store exposes the backend, mainly for tests.
func (a *App) Store() store.Store {
	return a.store
}

// Close releases the storage backend.
func (a *App) Close() error {
	return a.store.Close()
}

// getEnv returns the environment variable's value or the default when unset.
func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
