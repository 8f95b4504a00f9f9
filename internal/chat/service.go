package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/talent-catalog/chat-client/internal/bus"
)

// Bus is the connection-manager surface the chat service consumes.
// *bus.Manager satisfies it.
type Bus interface {
	EnsureActive() error
	Deactivate()
	Subscribe(subject string, handler func(data []byte)) (bus.Subscription, error)
	Publish(subject string, data []byte) error
}

// session is the cancellation scope of one login. Every per-room
// subscription is tied to its context; cancelling it atomically ends all of
// them in one step.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newSession() *session {
	ctx, cancel := context.WithCancel(context.Background())
	return &session{ctx: ctx, cancel: cancel}
}

// Service multiplexes the bus connection across chat rooms and derives each
// room's read status. All shared maps are mutex-guarded: unlike the UI event
// loop this was modelled on, callers and bus delivery run on many
// goroutines.
type Service struct {
	conns     Bus
	snapshots SnapshotStore

	mu      sync.Mutex
	session *session
	streams map[int64]*roomStream
	reads   map[int64]*readLoop
	marks   map[int64]chan bool
}

// NewService creates a Service with an armed session scope. No bus activity
// happens until the first Watch.
func NewService(conns Bus, snapshots SnapshotStore) *Service {
	return &Service{
		conns:     conns,
		snapshots: snapshots,
		session:   newSession(),
		streams:   make(map[int64]*roomStream),
		reads:     make(map[int64]*readLoop),
		marks:     make(map[int64]chan bool),
	}
}

// Watch returns a stream of inbound messages for the room. The underlying
// bus subscription is created at most once per room per session; every
// caller shares it. The returned channel is closed when ctx ends or when
// the session is torn down on logout.
//
// As a one-time side effect of the first watch, the room's read-status
// stream starts being observed so that IsRead stays current.
func (s *Service) Watch(ctx context.Context, room ChatRoom) (<-chan InboundMessage, error) {
	s.mu.Lock()
	if rs, ok := s.streams[room.ID]; ok && !rs.terminated() {
		ch := rs.addObserver(ctx)
		s.mu.Unlock()
		return ch, nil
	}

	if err := s.conns.EnsureActive(); err != nil {
		s.mu.Unlock()
		return nil, err
	}

	rs := newRoomStream(room.ID)
	sub, err := s.conns.Subscribe(Topic(room.ID), rs.deliver)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("chat: watch room %d: %w", room.ID, err)
	}

	s.streams[room.ID] = rs
	sess := s.session
	ch := rs.addObserver(ctx)
	s.mu.Unlock()

	go rs.run(sess.ctx, sub)

	if _, err := s.ensureReadLoop(room); err != nil {
		// The message stream itself is fine; read status will be retried on
		// the next ReadStatusStream call.
		log.Printf("[chat] room %d: read status observer: %v", room.ID, err)
	}

	return ch, nil
}

// SendPost publishes a new post to the room's send destination. The body is
// the JSON-encoded content envelope the backend expects.
func (s *Service) SendPost(room ChatRoom, content string) error {
	body, err := json.Marshal(struct {
		Content string `json:"content"`
	}{Content: content})
	if err != nil {
		return fmt.Errorf("chat: encode post: %w", err)
	}
	return s.conns.Publish(SendDestination(room.ID), body)
}

// TeardownAll fires the current session's cancellation signal, ending every
// per-room subscription and read loop created since the last login. The
// maps are left populated but inert; the next Watch after ResetSession
// recreates entries on demand.
func (s *Service) TeardownAll() {
	s.mu.Lock()
	sess := s.session
	s.mu.Unlock()
	sess.cancel()
	log.Printf("[chat] session teardown signalled")
}

// ResetSession arms a fresh cancellation scope for a new login, so a future
// teardown only affects subscriptions created from now on.
func (s *Service) ResetSession() {
	s.mu.Lock()
	s.session = newSession()
	s.mu.Unlock()
}
