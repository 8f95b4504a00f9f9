// Package chat implements the client side of the real-time chat subsystem:
// it multiplexes one message-bus connection across many chat rooms, derives
// a per-room read/unread status from inbound messages and manual read marks,
// and tears everything down in one step on logout.
package chat

import (
	"fmt"
	"time"
)

// RoomType tags the purpose of a chat room. Values match the directory's
// wire representation.
type RoomType string

const (
	RoomTypeJobCreatorSourcePartner     RoomType = "JobCreatorSourcePartnerChat"
	RoomTypeJobCreatorAllSourcePartners RoomType = "JobCreatorAllSourcePartnersChat"
	RoomTypeCandidateProspect           RoomType = "CandidateProspectChat"
	RoomTypeCandidateRecruiting         RoomType = "CandidateRecruitingChat"
	RoomTypeAllJobCandidates            RoomType = "AllJobCandidatesChat"
)

// ChatRoom identifies a conversation. The id is server-assigned; the client
// only ever receives one from the directory, never constructs it.
type ChatRoom struct {
	ID   int64    `json:"id"`
	Type RoomType `json:"type"`
	Name string   `json:"name,omitempty"`
}

// InboundMessage is an opaque envelope received from a room's topic. The
// payload is a serialized Post; the core never parses it, it only needs to
// know that something arrived.
type InboundMessage struct {
	RoomID int64
	Data   []byte
}

// Post is a message within a room, as returned by the directory.
type Post struct {
	ID          int64      `json:"id"`
	Content     string     `json:"content"`
	CreatedDate time.Time  `json:"createdDate"`
	CreatedBy   *User      `json:"createdBy,omitempty"`
	Reactions   []Reaction `json:"reactions,omitempty"`
}

// User is the author of a post.
type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

// Reaction is an emoji reaction attached to a post.
type Reaction struct {
	ID      int64   `json:"id"`
	Emoji   string  `json:"emoji"`
	UserIDs []int64 `json:"userIds,omitempty"`
}

// Topic returns the bus subject a room's posts are published to.
func Topic(roomID int64) string {
	return fmt.Sprintf("topic/chat/%d", roomID)
}

// SendDestination returns the bus subject new posts for a room are sent to.
func SendDestination(roomID int64) string {
	return fmt.Sprintf("app/chat/%d", roomID)
}
