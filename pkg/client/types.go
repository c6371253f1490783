package client

import (
	"github.com/notewell/notewell/pkg/ai"
	"github.com/notewell/notewell/pkg/models"
)

// Request and response types shared between the HTTP client and the server
// handlers. Keeping them here means both sides marshal the same shapes.

// SignUpRequest registers a new account.
type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// SignInRequest authenticates an existing account.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the session token and the account it belongs to.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// PullResponse is the body of GET /api/sync.
type PullResponse struct {
	Notes []models.Note `json:"notes"`
	// Hint is "missing_table" when the server schema has not been
	// provisioned yet and the empty result is a soft failure.
	Hint string `json:"hint,omitempty"`
}

// PushRequest is the body of POST /api/sync.
type PushRequest struct {
	Notes []models.Note `json:"notes"`
}

// PushResponse acknowledges a push.
type PushResponse struct {
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Hint  string `json:"hint,omitempty"`
}

// OKResponse is the generic acknowledgement for deletes.
type OKResponse struct {
	OK bool `json:"ok"`
}

// MemoryListResponse is the body of GET /api/memory.
type MemoryListResponse struct {
	Items []models.Memory `json:"items"`
}

// ClassifyRequest asks for a category and tags. ExistingTags are the note's
// current tags; the response unions them with suggestions rather than
// replacing them. APIKey overrides the server-side key when set.
type ClassifyRequest struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	ExistingTags []string `json:"existingTags,omitempty"`
	APIKey       string   `json:"apiKey,omitempty"`
}

// RewriteRequest asks for a cleaned-up note.
type RewriteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	APIKey  string `json:"apiKey,omitempty"`
}

// MergeRequest asks whether two notes should be combined.
type MergeRequest struct {
	TitleA   string `json:"titleA"`
	ContentA string `json:"contentA"`
	TitleB   string `json:"titleB"`
	ContentB string `json:"contentB"`
	APIKey   string `json:"apiKey,omitempty"`
}

// ExtractMemoryRequest asks for durable facts from a note and persists the
// deduplicated results under the device's scope.
type ExtractMemoryRequest struct {
	Title        string `json:"title"`
	Content      string `json:"content"`
	DeviceID     string `json:"deviceId"`
	SourceNoteID string `json:"sourceNoteId,omitempty"`
	APIKey       string `json:"apiKey,omitempty"`
}

// ExtractMemoryResponse reports how many extracted facts were new along
// with the stored records.
type ExtractMemoryResponse struct {
	Added int             `json:"added"`
	Items []models.Memory `json:"items"`
}

// SearchNote is one note in the corpus a search request carries. The client
// sends its local notes; the server never reads the note store for search.
type SearchNote struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`
}

// SearchRequest asks the model to rank the corpus against a query.
type SearchRequest struct {
	Query  string       `json:"query"`
	Notes  []SearchNote `json:"notes"`
	APIKey string       `json:"apiKey,omitempty"`
}

// SearchResult is one match enriched with display fields.
type SearchResult struct {
	ID      string `json:"id"`
	Reason  string `json:"reason"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchResponse is the body of POST /api/ai/search.
type SearchResponse struct {
	Matches []SearchResult `json:"matches"`
}

// ClassifyResponse, RewriteResponse, and MergeResponse reuse the ai package
// result shapes directly.
type (
	ClassifyResponse = ai.Classification
	RewriteResponse  = ai.Rewrite
	MergeResponse    = ai.MergeSuggestion
)
