package notewell

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server fails. Shutdown drains in-flight requests for up to five seconds.
func (a *App) Run(ctx context.Context) error {
	router := a.routes()

	server := &http.Server{
		Addr:    ":" + a.config.Port,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		a.log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	}
}

func (a *App) routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/signup", a.handleSignUp).Methods("POST")
	api.HandleFunc("/auth/signin", a.handleSignIn).Methods("POST")
	api.HandleFunc("/auth/signout", a.handleSignOut).Methods("POST")
	api.HandleFunc("/auth/me", a.handleMe).Methods("GET")

	api.HandleFunc("/sync", a.handlePullNotes).Methods("GET")
	api.HandleFunc("/sync", a.handlePushNotes).Methods("POST")
	api.HandleFunc("/sync/{id}", a.handleDeleteNote).Methods("DELETE")

	api.HandleFunc("/memory", a.handleListMemories).Methods("GET")
	api.HandleFunc("/memory/{id}", a.handleDeleteMemory).Methods("DELETE")

	api.HandleFunc("/ai/classify", a.handleClassify).Methods("POST")
	api.HandleFunc("/ai/rewrite", a.handleRewrite).Methods("POST")
	api.HandleFunc("/ai/merge", a.handleMerge).Methods("POST")
	api.HandleFunc("/ai/extract-memory", a.handleExtractMemory).Methods("POST")
	api.HandleFunc("/ai/search", a.handleSearch).Methods("POST")

	return router
}
