package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/talent-catalog/chat-client/internal/chat"
)

type fixedToken string

func (t fixedToken) Token() string { return string(t) }

func TestGetOrCreateRoom(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/get-or-create" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Type != chat.RoomTypeCandidateProspect {
			t.Errorf("unexpected room type %q", req.Type)
		}
		if req.CandidateID == nil || *req.CandidateID != 99 {
			t.Errorf("unexpected candidate id %v", req.CandidateID)
		}
		if req.JobID != nil {
			t.Errorf("expected jobId omitted, got %v", *req.JobID)
		}

		json.NewEncoder(w).Encode(chat.ChatRoom{ID: 42, Type: req.Type})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken("tok-1"))
	candidateID := int64(99)
	room, err := c.GetOrCreateRoom(context.Background(), CreateRoomRequest{
		Type:        chat.RoomTypeCandidateProspect,
		CandidateID: &candidateID,
	})
	if err != nil {
		t.Fatalf("GetOrCreateRoom: %v", err)
	}
	if room.ID != 42 {
		t.Fatalf("expected room 42, got %d", room.ID)
	}
}

func TestListRooms(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/chat" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]chat.ChatRoom{
			{ID: 1, Type: chat.RoomTypeJobCreatorSourcePartner},
			{ID: 2, Type: chat.RoomTypeAllJobCandidates, Name: "All candidates"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken("tok"))
	rooms, err := c.ListRooms(context.Background())
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 || rooms[1].Name != "All candidates" {
		t.Fatalf("unexpected rooms %+v", rooms)
	}
}

func TestListPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat-post/7/list" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]chat.Post{
			{ID: 10, Content: "first"},
			{ID: 11, Content: "second"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken("tok"))
	posts, err := c.ListPosts(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 2 || posts[0].Content != "first" {
		t.Fatalf("unexpected posts %+v", posts)
	}
}

func TestServerErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken("tok"))
	if _, err := c.ListRooms(context.Background()); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
	if _, err := c.CreateRoom(context.Background(), CreateRoomRequest{Type: chat.RoomTypeCandidateRecruiting}); err == nil {
		t.Fatal("expected an error for a 500 response")
	}
}

func TestNoAuthHeaderWhenLoggedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("expected no Authorization header without a token")
		}
		json.NewEncoder(w).Encode([]chat.ChatRoom{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken(""))
	if _, err := c.ListRooms(context.Background()); err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
}

func TestAddReaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/reaction/10/add-reaction" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["emoji"] != "👍" {
			t.Errorf("unexpected emoji %q", req["emoji"])
		}
		json.NewEncoder(w).Encode([]chat.Reaction{{ID: 1, Emoji: "👍", UserIDs: []int64{5}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken("tok"))
	reactions, err := c.AddReaction(context.Background(), 10, "👍")
	if err != nil {
		t.Fatalf("AddReaction: %v", err)
	}
	if len(reactions) != 1 || reactions[0].Emoji != "👍" {
		t.Fatalf("unexpected reactions %+v", reactions)
	}
}

func TestModifyReaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/reaction/10/modify-reaction/3" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode([]chat.Reaction{{ID: 3, Emoji: "🎉", UserIDs: []int64{5, 6}}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, fixedToken("tok"))
	reactions, err := c.ModifyReaction(context.Background(), 10, 3)
	if err != nil {
		t.Fatalf("ModifyReaction: %v", err)
	}
	if len(reactions) != 1 || len(reactions[0].UserIDs) != 2 {
		t.Fatalf("unexpected reactions %+v", reactions)
	}
}
