// Package client is the typed HTTP client for the note sync server. It
// implements the remote side of the sync engine and wraps the auth, memory,
// and AI endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/notewell/notewell/pkg/models"
)

// Client talks to a running server. It is safe for concurrent use; the
// session token is guarded so sign-in can race with sync traffic.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

// New creates a client for the server at baseURL (no trailing slash).
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SetToken installs a session token for subsequent requests.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current session token, empty when signed out.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// decodeResponse decodes a 2xx body into out, or turns an error body into
// an error. out may be nil when the caller ignores the body.
func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil && errBody.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errBody.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// SignUp registers an account and installs the returned session token.
func (c *Client) SignUp(ctx context.Context, email, name, password string) (*models.User, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/auth/signup", SignUpRequest{
		Email:    email,
		Name:     name,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := decodeResponse(resp, &auth); err != nil {
		return nil, err
	}
	c.SetToken(auth.Token)
	return &auth.User, nil
}

// SignIn authenticates and installs the returned session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/auth/signin", SignInRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	var auth AuthResponse
	if err := decodeResponse(resp, &auth); err != nil {
		return nil, err
	}
	c.SetToken(auth.Token)
	return &auth.User, nil
}

// SignOut invalidates the server-side session and clears the local token.
func (c *Client) SignOut(ctx context.Context) error {
	resp, err := c.doRequest(ctx, "POST", "/api/auth/signout", struct{}{})
	if err != nil {
		return err
	}
	if err := decodeResponse(resp, nil); err != nil {
		return err
	}
	c.SetToken("")
	return nil
}

// Me returns the account the current token belongs to.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	resp, err := c.doRequest(ctx, "GET", "/api/auth/me", nil)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := decodeResponse(resp, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// PullNotes fetches notes updated at or after since, newest first. since=0
// fetches everything.
func (c *Client) PullNotes(ctx context.Context, since int64) ([]models.Note, error) {
	path := "/api/sync"
	if since > 0 {
		path += "?since=" + strconv.FormatInt(since, 10)
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var pull PullResponse
	if err := decodeResponse(resp, &pull); err != nil {
		return nil, err
	}
	return pull.Notes, nil
}

// PushNotes uploads notes and returns how many the server stored.
func (c *Client) PushNotes(ctx context.Context, notes []models.Note) (int, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/sync", PushRequest{Notes: notes})
	if err != nil {
		return 0, err
	}

	var push PushResponse
	if err := decodeResponse(resp, &push); err != nil {
		return 0, err
	}
	return push.Count, nil
}

// DeleteNote removes a note from the server.
func (c *Client) DeleteNote(ctx context.Context, id models.NoteID) error {
	resp, err := c.doRequest(ctx, "DELETE", "/api/sync/"+url.PathEscape(id.String()), nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// ListMemories fetches stored memories for a device, newest first. limit<=0
// uses the server default.
func (c *Client) ListMemories(ctx context.Context, deviceID string, limit int) ([]models.Memory, error) {
	path := "/api/memory?deviceId=" + url.QueryEscape(deviceID)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}

	resp, err := c.doRequest(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}

	var list MemoryListResponse
	if err := decodeResponse(resp, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

// DeleteMemory removes one stored memory from a device's scope.
func (c *Client) DeleteMemory(ctx context.Context, deviceID string, id models.MemoryID) error {
	path := fmt.Sprintf("/api/memory/%s?deviceId=%s", id.String(), url.QueryEscape(deviceID))
	resp, err := c.doRequest(ctx, "DELETE", path, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, nil)
}

// Classify asks the server to categorize and tag a note.
func (c *Client) Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error) {
	var out ClassifyResponse
	resp, err := c.doRequest(ctx, "POST", "/api/ai/classify", req)
	if err != nil {
		return out, err
	}
	err = decodeResponse(resp, &out)
	return out, err
}

// Rewrite asks the server to clean up a note.
func (c *Client) Rewrite(ctx context.Context, req RewriteRequest) (RewriteResponse, error) {
	var out RewriteResponse
	resp, err := c.doRequest(ctx, "POST", "/api/ai/rewrite", req)
	if err != nil {
		return out, err
	}
	err = decodeResponse(resp, &out)
	return out, err
}

// SuggestMerge asks the server whether two notes should be combined.
func (c *Client) SuggestMerge(ctx context.Context, req MergeRequest) (MergeResponse, error) {
	var out MergeResponse
	resp, err := c.doRequest(ctx, "POST", "/api/ai/merge", req)
	if err != nil {
		return out, err
	}
	err = decodeResponse(resp, &out)
	return out, err
}

// ExtractMemories asks the server to pull durable facts from a note and
// persist them for the device.
func (c *Client) ExtractMemories(ctx context.Context, req ExtractMemoryRequest) (ExtractMemoryResponse, error) {
	var out ExtractMemoryResponse
	resp, err := c.doRequest(ctx, "POST", "/api/ai/extract-memory", req)
	if err != nil {
		return out, err
	}
	err = decodeResponse(resp, &out)
	return out, err
}

// Search asks the server to rank the supplied notes against a query.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	resp, err := c.doRequest(ctx, "POST", "/api/ai/search", req)
	if err != nil {
		return nil, err
	}

	var out SearchResponse
	if err := decodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Matches, nil
}
