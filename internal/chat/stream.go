package chat

import (
	"context"
	"log"
	"sync"

	"github.com/talent-catalog/chat-client/internal/bus"
	"github.com/talent-catalog/chat-client/internal/metrics"
)

const (
	// inboxSize buffers inbound frames between the bus delivery goroutine
	// and the room's pump.
	inboxSize = 64

	// observerBufSize buffers fanned-out messages per observer.
	observerBufSize = 16
)

// roomStream is the shared inbound-message stream for one room: a single
// bus subscription fanned out to any number of observer channels. It is
// created at most once per room per session and terminates only when the
// session's cancellation signal fires.
type roomStream struct {
	roomID int64
	inbox  chan InboundMessage
	done   chan struct{} // closed when the pump exits

	mu        sync.Mutex
	observers map[int]chan InboundMessage
	nextID    int
}

func newRoomStream(roomID int64) *roomStream {
	return &roomStream{
		roomID:    roomID,
		inbox:     make(chan InboundMessage, inboxSize),
		done:      make(chan struct{}),
		observers: make(map[int]chan InboundMessage),
	}
}

// deliver is the bus subscription handler. It must never block the bus
// delivery goroutine: if the inbox is full the frame is dropped.
func (rs *roomStream) deliver(data []byte) {
	msg := InboundMessage{RoomID: rs.roomID, Data: data}
	select {
	case rs.inbox <- msg:
	case <-rs.done:
	default:
		metrics.MessagesDropped.Inc()
		log.Printf("[chat] room %d: inbox full, dropping message", rs.roomID)
	}
}

// run pumps inbound frames to observers until the session context is
// cancelled, then unsubscribes from the bus and closes every observer.
func (rs *roomStream) run(ctx context.Context, sub bus.Subscription) {
	metrics.RoomSubscriptions.Inc()
	defer func() {
		close(rs.done)
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("[chat] room %d: unsubscribe: %v", rs.roomID, err)
		}
		rs.mu.Lock()
		for id, ch := range rs.observers {
			delete(rs.observers, id)
			close(ch)
		}
		rs.mu.Unlock()
		metrics.RoomSubscriptions.Dec()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-rs.inbox:
			rs.broadcast(msg)
		}
	}
}

func (rs *roomStream) broadcast(msg InboundMessage) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	for _, ch := range rs.observers {
		select {
		case ch <- msg:
			metrics.MessagesDelivered.Inc()
		default:
			metrics.MessagesDropped.Inc()
			log.Printf("[chat] room %d: slow observer, dropping message", rs.roomID)
		}
	}
}

// addObserver registers a new observer channel. The observer is detached
// (and its channel closed) when its context ends; the shared subscription
// itself is untouched by that, only the global cancellation ends it.
func (rs *roomStream) addObserver(ctx context.Context) <-chan InboundMessage {
	ch := make(chan InboundMessage, observerBufSize)

	rs.mu.Lock()
	if rs.terminated() {
		// Stream already torn down: hand back a closed channel.
		rs.mu.Unlock()
		close(ch)
		return ch
	}
	id := rs.nextID
	rs.nextID++
	rs.observers[id] = ch
	rs.mu.Unlock()

	go func() {
		select {
		case <-rs.done:
			// run's deferred cleanup closes the channel.
		case <-ctx.Done():
			rs.mu.Lock()
			if _, ok := rs.observers[id]; ok {
				delete(rs.observers, id)
				close(ch)
			}
			rs.mu.Unlock()
		}
	}()

	return ch
}

// terminated reports whether the stream's pump has exited. A terminated
// stream stays in the subscription map, inert, until the next Watch after
// login replaces it.
func (rs *roomStream) terminated() bool {
	select {
	case <-rs.done:
		return true
	default:
		return false
	}
}
