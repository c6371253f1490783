package notewell

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/notewell/notewell/pkg/client"
	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/store"
)

// generateToken returns a random session token.
func generateToken() string {
	b := make([]byte, 32)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// hashPassword is intentionally simple. Sessions are bearer tokens held in
// memory; the password hash only gates sign-in against the stored record.
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// authedUser resolves the Authorization bearer token to a signed-in user,
// or nil when the token is absent or unknown.
func (a *App) authedUser(r *http.Request) *models.User {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil
	}

	a.sessionMu.RLock()
	defer a.sessionMu.RUnlock()
	return a.sessions[token]
}

func (a *App) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req client.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user := &models.User{
		ID:           models.NewUserID(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hashPassword(req.Password),
		CreatedAt:    models.NowMillis(),
	}

	if err := a.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "email already registered")
			return
		}
		a.log.Error().Err(err).Msg("creating user")
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	token := generateToken()
	a.sessionMu.Lock()
	a.sessions[token] = user
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusCreated, client.AuthResponse{Token: token, User: *user})
}

func (a *App) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req client.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.store.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		a.log.Error().Err(err).Msg("looking up user")
		respondError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if user == nil || user.PasswordHash != hashPassword(req.Password) {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token := generateToken()
	a.sessionMu.Lock()
	a.sessions[token] = user
	a.sessionMu.Unlock()

	respondJSON(w, http.StatusOK, client.AuthResponse{Token: token, User: *user})
}

func (a *App) handleSignOut(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		a.sessionMu.Lock()
		delete(a.sessions, token)
		a.sessionMu.Unlock()
	}
	respondJSON(w, http.StatusOK, client.OKResponse{OK: true})
}

func (a *App) handleMe(w http.ResponseWriter, r *http.Request) {
	user := a.authedUser(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	respondJSON(w, http.StatusOK, *user)
}
