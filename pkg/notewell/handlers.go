package notewell

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/notewell/notewell/pkg/client"
	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/store"
)

const defaultMemoryLimit = 200

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePullNotes returns the caller's notes updated at or after the since
// cursor, newest first. since=0 (or absent) returns everything.
func (a *App) handlePullNotes(w http.ResponseWriter, r *http.Request) {
	user := a.authedUser(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var since int64
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid since parameter")
			return
		}
		since = parsed
	}

	notes, err := a.store.ListNotesSince(r.Context(), user.ID, since)
	if err != nil {
		if store.IsMissingTable(err) {
			respondJSON(w, http.StatusOK, client.PullResponse{Notes: []models.Note{}, Hint: "missing_table"})
			return
		}
		a.log.Error().Err(err).Msg("listing notes")
		respondError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}

	respondJSON(w, http.StatusOK, client.PullResponse{Notes: notes})
}

func (a *App) handlePushNotes(w http.ResponseWriter, r *http.Request) {
	user := a.authedUser(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req client.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for i := range req.Notes {
		if req.Notes[i].ID.IsZero() {
			respondError(w, http.StatusBadRequest, "note is missing an id")
			return
		}
		req.Notes[i].UserID = user.ID
		req.Notes[i].Normalize()
	}

	count, err := a.store.UpsertNotes(r.Context(), user.ID, req.Notes)
	if err != nil {
		if store.IsMissingTable(err) {
			respondJSON(w, http.StatusOK, client.PushResponse{OK: true, Hint: "missing_table"})
			return
		}
		a.log.Error().Err(err).Msg("upserting notes")
		respondError(w, http.StatusInternalServerError, "failed to store notes")
		return
	}

	respondJSON(w, http.StatusOK, client.PushResponse{OK: true, Count: count})
}

func (a *App) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	user := a.authedUser(r)
	if user == nil {
		respondError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := models.ParseNoteID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid note id")
		return
	}

	if err := a.store.DeleteNote(r.Context(), user.ID, id); err != nil {
		a.log.Error().Err(err).Str("note", id.String()).Msg("deleting note")
		respondError(w, http.StatusInternalServerError, "failed to delete note")
		return
	}

	respondJSON(w, http.StatusOK, client.OKResponse{OK: true})
}

func (a *App) handleListMemories(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	limit := defaultMemoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		limit = parsed
	}

	memories, err := a.store.ListMemories(r.Context(), deviceID, limit)
	if err != nil {
		if store.IsMissingTable(err) {
			respondJSON(w, http.StatusOK, client.MemoryListResponse{Items: []models.Memory{}})
			return
		}
		a.log.Error().Err(err).Msg("listing memories")
		respondError(w, http.StatusInternalServerError, "failed to list memories")
		return
	}
	if memories == nil {
		memories = []models.Memory{}
	}

	respondJSON(w, http.StatusOK, client.MemoryListResponse{Items: memories})
}

func (a *App) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceId")
	if deviceID == "" {
		respondError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	id, err := models.ParseMemoryID(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := a.store.DeleteMemory(r.Context(), deviceID, id); err != nil {
		a.log.Error().Err(err).Str("memory", id.String()).Msg("deleting memory")
		respondError(w, http.StatusInternalServerError, "failed to delete memory")
		return
	}

	respondJSON(w, http.StatusOK, client.OKResponse{OK: true})
}
