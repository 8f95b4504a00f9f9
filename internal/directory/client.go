// Package directory is the REST client for the chat directory: listing,
// creating and fetching rooms and their historical posts. Calls either
// succeed or fail; errors are propagated to the caller, never retried, and
// leave no state behind.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/talent-catalog/chat-client/internal/chat"
	"github.com/talent-catalog/chat-client/internal/metrics"
)

// TokenSource supplies the bearer token attached to every request.
type TokenSource interface {
	Token() string
}

// Client calls the chat directory REST API.
type Client struct {
	baseURL string
	tokens  TokenSource
	http    *http.Client
}

// NewClient creates a directory client for the given API base URL
// (e.g. "https://host/api/admin").
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// CreateRoomRequest identifies the room to create or fetch. Which optional
// fields apply depends on the room type.
type CreateRoomRequest struct {
	Type            chat.RoomType `json:"type"`
	CandidateOppID  *int64        `json:"candidateOppId,omitempty"`
	JobID           *int64        `json:"jobId,omitempty"`
	SourcePartnerID *int64        `json:"sourcePartnerId,omitempty"`
	CandidateID     *int64        `json:"candidateId,omitempty"`
}

// CreateRoom creates a new chat room.
func (c *Client) CreateRoom(ctx context.Context, req CreateRoomRequest) (*chat.ChatRoom, error) {
	var room chat.ChatRoom
	if err := c.do(ctx, http.MethodPost, "/chat", req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// GetOrCreateRoom fetches the room matching the request, creating it if it
// does not exist yet. Idempotent on the server side.
func (c *Client) GetOrCreateRoom(ctx context.Context, req CreateRoomRequest) (*chat.ChatRoom, error) {
	var room chat.ChatRoom
	if err := c.do(ctx, http.MethodPost, "/chat/get-or-create", req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRooms returns the rooms visible to the current user.
func (c *Client) ListRooms(ctx context.Context) ([]chat.ChatRoom, error) {
	var rooms []chat.ChatRoom
	if err := c.do(ctx, http.MethodGet, "/chat", nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

// ListPosts returns the recent posts of a room.
func (c *Client) ListPosts(ctx context.Context, roomID int64) ([]chat.Post, error) {
	var posts []chat.Post
	path := fmt.Sprintf("/chat-post/%d/list", roomID)
	if err := c.do(ctx, http.MethodGet, path, nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("directory: encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.DirectoryRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("directory: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("directory: %s %s: unexpected status %d: %s",
			method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("directory: decode %s %s response: %w", method, path, err)
	}
	return nil
}
