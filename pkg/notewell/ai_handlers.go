package notewell

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/notewell/notewell/pkg/ai"
	"github.com/notewell/notewell/pkg/client"
	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/store"
)

// gatewayFor builds an AI gateway for the request. The request's apiKey
// wins over the server-side default; neither set is a client error.
func (a *App) gatewayFor(r *http.Request, apiKey string) (*ai.Gateway, bool) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		key = a.config.GeminiAPIKey
	}
	if key == "" {
		return nil, false
	}

	gen, err := a.newGenerator(r.Context(), key)
	if err != nil {
		a.log.Error().Err(err).Msg("creating generator")
		return nil, false
	}
	return ai.NewGateway(gen), true
}

func (a *App) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req client.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gateway, ok := a.gatewayFor(r, req.APIKey)
	if !ok {
		respondError(w, http.StatusBadRequest, "a Gemini API key is required")
		return
	}

	result, err := gateway.Classify(r.Context(), req.Title, req.Content, req.ExistingTags)
	if err != nil {
		a.log.Error().Err(err).Msg("classify request failed")
		respondError(w, http.StatusBadGateway, "classification failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *App) handleRewrite(w http.ResponseWriter, r *http.Request) {
	var req client.RewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gateway, ok := a.gatewayFor(r, req.APIKey)
	if !ok {
		respondError(w, http.StatusBadRequest, "a Gemini API key is required")
		return
	}

	result, err := gateway.RewriteNote(r.Context(), req.Title, req.Content)
	if err != nil {
		a.log.Error().Err(err).Msg("rewrite request failed")
		respondError(w, http.StatusBadGateway, "rewrite failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (a *App) handleMerge(w http.ResponseWriter, r *http.Request) {
	var req client.MergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	gateway, ok := a.gatewayFor(r, req.APIKey)
	if !ok {
		respondError(w, http.StatusBadRequest, "a Gemini API key is required")
		return
	}

	result, err := gateway.SuggestMerge(r.Context(), req.TitleA, req.ContentA, req.TitleB, req.ContentB)
	if err != nil {
		a.log.Error().Err(err).Msg("merge request failed")
		respondError(w, http.StatusBadGateway, "merge suggestion failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleExtractMemory extracts durable facts and persists them under the
// device's scope. Facts whose fingerprint already exists are not counted.
func (a *App) handleExtractMemory(w http.ResponseWriter, r *http.Request) {
	var req client.ExtractMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DeviceID == "" {
		respondError(w, http.StatusBadRequest, "deviceId is required")
		return
	}

	gateway, ok := a.gatewayFor(r, req.APIKey)
	if !ok {
		respondError(w, http.StatusBadRequest, "a Gemini API key is required")
		return
	}

	extracted, err := gateway.ExtractMemories(r.Context(), req.Title, req.Content)
	if err != nil {
		a.log.Error().Err(err).Msg("memory extraction failed")
		respondError(w, http.StatusBadGateway, "memory extraction failed")
		return
	}

	now := models.NowMillis()
	memories := make([]models.Memory, 0, len(extracted))
	for _, e := range extracted {
		memory := models.Memory{
			DeviceID:     req.DeviceID,
			Content:      e.Content,
			Topic:        e.Topic,
			Importance:   e.Importance,
			SourceNoteID: req.SourceNoteID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if memory.Normalize() {
			memories = append(memories, memory)
		}
	}

	added, err := a.store.UpsertMemories(r.Context(), memories)
	if err != nil {
		if store.IsMissingTable(err) {
			respondJSON(w, http.StatusOK, client.ExtractMemoryResponse{Items: []models.Memory{}})
			return
		}
		a.log.Error().Err(err).Msg("storing memories")
		respondError(w, http.StatusInternalServerError, "failed to store memories")
		return
	}

	respondJSON(w, http.StatusOK, client.ExtractMemoryResponse{Added: added, Items: memories})
}

// handleSearch ranks the caller-provided corpus against the query. The
// server never consults its own note store here; search runs over whatever
// the device sent.
func (a *App) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req client.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	gateway, ok := a.gatewayFor(r, req.APIKey)
	if !ok {
		respondError(w, http.StatusBadRequest, "a Gemini API key is required")
		return
	}

	corpus := make([]ai.CorpusNote, 0, len(req.Notes))
	byID := make(map[string]client.SearchNote, len(req.Notes))
	for _, n := range req.Notes {
		corpus = append(corpus, ai.CorpusNote{
			ID:       n.ID,
			Title:    n.Title,
			Tags:     n.Tags,
			Category: n.Category,
			Snippet:  ai.Snippet(n.Content, ai.CorpusSnippetLen),
		})
		byID[n.ID] = n
	}

	matches, err := gateway.Search(r.Context(), req.Query, corpus)
	if err != nil {
		a.log.Error().Err(err).Msg("search request failed")
		respondError(w, http.StatusBadGateway, "search failed")
		return
	}

	results := make([]client.SearchResult, 0, len(matches))
	for _, m := range matches {
		note, ok := byID[m.ID]
		if !ok {
			continue
		}
		results = append(results, client.SearchResult{
			ID:      m.ID,
			Reason:  m.Reason,
			Title:   note.Title,
			Snippet: ai.Snippet(note.Content, ai.ResultSnippetLen),
		})
	}

	respondJSON(w, http.StatusOK, client.SearchResponse{Matches: results})
}
