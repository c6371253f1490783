package notewell

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewell/notewell/pkg/ai"
	"github.com/notewell/notewell/pkg/client"
	"github.com/notewell/notewell/pkg/models"
)

type cannedGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.response, nil
}

func newTestApp(t *testing.T, gen ai.Generator) (*App, *httptest.Server) {
	t.Helper()

	app, err := New(context.Background(), &Config{Memory: true, GeminiAPIKey: "test-key"}, zerolog.Nop())
	require.NoError(t, err)
	app.newGenerator = func(ctx context.Context, apiKey string) (ai.Generator, error) {
		return gen, nil
	}

	server := httptest.NewServer(app.routes())
	t.Cleanup(func() {
		server.Close()
		app.Close()
	})
	return app, server
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest("POST", url, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest("GET", url, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func signUp(t *testing.T, serverURL, email string) string {
	t.Helper()

	resp := postJSON(t, serverURL+"/api/auth/signup", "", client.SignUpRequest{
		Email:    email,
		Name:     "Test User",
		Password: "hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[client.AuthResponse](t, resp).Token
}

func TestHealth(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestSignUpAndSignIn(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})

	token := signUp(t, server.URL, "alice@example.com")
	assert.NotEmpty(t, token)

	// Duplicate email is rejected.
	resp := postJSON(t, server.URL+"/api/auth/signup", "", client.SignUpRequest{
		Email:    "Alice@Example.com",
		Password: "other",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/auth/signin", "", client.SignInRequest{
		Email:    "alice@example.com",
		Password: "hunter2",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	auth := decode[client.AuthResponse](t, resp)
	assert.NotEmpty(t, auth.Token)
	assert.NotEqual(t, token, auth.Token)
	assert.Equal(t, "alice@example.com", auth.User.Email)

	resp = postJSON(t, server.URL+"/api/auth/signin", "", client.SignInRequest{
		Email:    "alice@example.com",
		Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestMeAndSignOut(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})
	token := signUp(t, server.URL, "bob@example.com")

	resp := getWithToken(t, server.URL+"/api/auth/me", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := decode[models.User](t, resp)
	assert.Equal(t, "bob@example.com", user.Email)

	resp = postJSON(t, server.URL+"/api/auth/signout", token, struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = getWithToken(t, server.URL+"/api/auth/me", token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestSyncRequiresAuth(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})

	resp, err := http.Get(server.URL + "/api/sync")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, server.URL+"/api/sync", "bogus-token", client.PushRequest{})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestPushAndPullNotes(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})
	token := signUp(t, server.URL, "carol@example.com")

	id1, _ := models.ParseNoteID("note-1")
	id2, _ := models.ParseNoteID("note-2")
	resp := postJSON(t, server.URL+"/api/sync", token, client.PushRequest{
		Notes: []models.Note{
			{ID: id1, Title: "First", Content: "alpha", UpdatedAt: 100, CreatedAt: 100},
			{ID: id2, Title: "Second", Content: "beta", UpdatedAt: 200, CreatedAt: 200},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	push := decode[client.PushResponse](t, resp)
	assert.True(t, push.OK)
	assert.Equal(t, 2, push.Count)

	resp = getWithToken(t, server.URL+"/api/sync", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pull := decode[client.PullResponse](t, resp)
	require.Len(t, pull.Notes, 2)
	assert.Equal(t, "Second", pull.Notes[0].Title)

	// since is inclusive.
	resp = getWithToken(t, server.URL+"/api/sync?since=200", token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pull = decode[client.PullResponse](t, resp)
	require.Len(t, pull.Notes, 1)
	assert.Equal(t, "Second", pull.Notes[0].Title)

	// Another account sees nothing.
	other := signUp(t, server.URL, "dave@example.com")
	resp = getWithToken(t, server.URL+"/api/sync", other)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pull = decode[client.PullResponse](t, resp)
	assert.Empty(t, pull.Notes)
}

func TestPushRejectsMissingID(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})
	token := signUp(t, server.URL, "erin@example.com")

	resp := postJSON(t, server.URL+"/api/sync", token, client.PushRequest{
		Notes: []models.Note{{Title: "No ID"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteNote(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})
	token := signUp(t, server.URL, "frank@example.com")

	id, _ := models.ParseNoteID("gone-soon")
	resp := postJSON(t, server.URL+"/api/sync", token, client.PushRequest{
		Notes: []models.Note{{ID: id, Title: "Doomed", UpdatedAt: 1, CreatedAt: 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest("DELETE", server.URL+"/api/sync/gone-soon", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = getWithToken(t, server.URL+"/api/sync", token)
	pull := decode[client.PullResponse](t, resp)
	assert.Empty(t, pull.Notes)
}

func TestClassifyEndpoint(t *testing.T) {
	gen := &cannedGenerator{response: `{"category":"Work","tags":["standup","planning"]}`}
	_, server := newTestApp(t, gen)

	resp := postJSON(t, server.URL+"/api/ai/classify", "", client.ClassifyRequest{
		Title:   "Monday standup",
		Content: "Discussed sprint goals",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[client.ClassifyResponse](t, resp)
	assert.Equal(t, "Work", result.Category)
	assert.Equal(t, []string{"standup", "planning"}, result.Tags)
}

func TestAIEndpointsRequireKey(t *testing.T) {
	app, server := newTestApp(t, &cannedGenerator{})
	app.config.GeminiAPIKey = ""

	resp := postJSON(t, server.URL+"/api/ai/classify", "", client.ClassifyRequest{Title: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// A key in the body works with no server-side default.
	resp = postJSON(t, server.URL+"/api/ai/rewrite", "", client.RewriteRequest{
		Title: "x", Content: "y", APIKey: "from-body",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestExtractMemoryPersists(t *testing.T) {
	gen := &cannedGenerator{response: `{"memories":[
		{"content":"Prefers dark roast coffee","topic":"preferences","importance":3},
		{"content":"Works at Initech","topic":"work","importance":4}
	]}`}
	_, server := newTestApp(t, gen)

	resp := postJSON(t, server.URL+"/api/ai/extract-memory", "", client.ExtractMemoryRequest{
		Title:    "About me",
		Content:  "Long enough content about preferences and work history.",
		DeviceID: "device-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[client.ExtractMemoryResponse](t, resp)
	assert.Equal(t, 2, result.Added)
	require.Len(t, result.Items, 2)
	assert.NotEmpty(t, result.Items[0].Fingerprint)

	// Same extraction again adds nothing new.
	resp = postJSON(t, server.URL+"/api/ai/extract-memory", "", client.ExtractMemoryRequest{
		Title:    "About me",
		Content:  "Long enough content about preferences and work history.",
		DeviceID: "device-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result = decode[client.ExtractMemoryResponse](t, resp)
	assert.Equal(t, 0, result.Added)

	// Listing is device scoped.
	resp = getWithToken(t, server.URL+"/api/memory?deviceId=device-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[client.MemoryListResponse](t, resp)
	assert.Len(t, list.Items, 2)

	resp = getWithToken(t, server.URL+"/api/memory?deviceId=device-2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list = decode[client.MemoryListResponse](t, resp)
	assert.Empty(t, list.Items)
}

func TestExtractMemoryRequiresDevice(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{response: `{"memories":[]}`})

	resp := postJSON(t, server.URL+"/api/ai/extract-memory", "", client.ExtractMemoryRequest{
		Title: "x", Content: "y",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDeleteMemory(t *testing.T) {
	gen := &cannedGenerator{response: `{"memories":[{"content":"Lives in Lisbon","importance":2}]}`}
	_, server := newTestApp(t, gen)

	resp := postJSON(t, server.URL+"/api/ai/extract-memory", "", client.ExtractMemoryRequest{
		Title: "Home", Content: "Enough content to extract from here.", DeviceID: "device-9",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[client.ExtractMemoryResponse](t, resp)
	require.Len(t, result.Items, 1)

	url := fmt.Sprintf("%s/api/memory/%s?deviceId=device-9", server.URL, result.Items[0].ID.String())
	req, err := http.NewRequest("DELETE", url, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = getWithToken(t, server.URL+"/api/memory?deviceId=device-9", "")
	list := decode[client.MemoryListResponse](t, resp)
	assert.Empty(t, list.Items)
}

func TestSearchEndpoint(t *testing.T) {
	gen := &cannedGenerator{response: `{"matches":[
		{"id":"n2","reason":"mentions the trip"},
		{"id":"unknown","reason":"hallucinated"}
	]}`}
	_, server := newTestApp(t, gen)

	resp := postJSON(t, server.URL+"/api/ai/search", "", client.SearchRequest{
		Query: "travel plans",
		Notes: []client.SearchNote{
			{ID: "n1", Title: "Groceries", Content: "milk and eggs"},
			{ID: "n2", Title: "Japan trip", Content: "flights booked for April"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[client.SearchResponse](t, resp)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "n2", result.Matches[0].ID)
	assert.Equal(t, "Japan trip", result.Matches[0].Title)
	assert.Contains(t, result.Matches[0].Snippet, "flights booked")
}

func TestSearchRequiresQuery(t *testing.T) {
	_, server := newTestApp(t, &cannedGenerator{})

	resp := postJSON(t, server.URL+"/api/ai/search", "", client.SearchRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
