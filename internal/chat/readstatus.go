package chat

import (
	"context"
	"sync"
)

// readObserverBufSize buffers read-status values per observer. The first
// slot is always taken by the seeded snapshot value.
const readObserverBufSize = 8

// readLoop is the per-room merge of two boolean event sources: inbound
// messages (each one means "unread") and the room's manual mark trigger.
// Whichever fired most recently wins. The loop writes every value through
// to the snapshot store before broadcasting, so the synchronous IsRead view
// never lags behind the stream.
type readLoop struct {
	roomID    int64
	snapshots SnapshotStore
	done      chan struct{}

	mu        sync.Mutex
	observers map[int]chan bool
	nextID    int
}

func newReadLoop(roomID int64, snapshots SnapshotStore) *readLoop {
	return &readLoop{
		roomID:    roomID,
		snapshots: snapshots,
		done:      make(chan struct{}),
		observers: make(map[int]chan bool),
	}
}

func (rl *readLoop) run(ctx context.Context, inbound <-chan InboundMessage, marks <-chan bool) {
	defer func() {
		close(rl.done)
		rl.mu.Lock()
		for id, ch := range rl.observers {
			delete(rl.observers, id)
			close(ch)
		}
		rl.mu.Unlock()
	}()

	for {
		var read bool
		select {
		case <-ctx.Done():
			return
		case _, ok := <-inbound:
			if !ok {
				return
			}
			read = false
		case v, ok := <-marks:
			if !ok {
				return
			}
			read = v
		}

		rl.snapshots.Set(rl.roomID, read)
		rl.broadcast(read)
	}
}

func (rl *readLoop) broadcast(read bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, ch := range rl.observers {
		select {
		case ch <- read:
		default:
			// Observer is not draining; it will catch up from the snapshot.
		}
	}
}

// addObserver registers an observer seeded with the current snapshot value,
// so a fresh subscriber sees a correct value without waiting for an event.
// The seed is read under rl.mu, which serializes it against run's
// Set-then-broadcast sequence: an observer either sees an event's value in
// its seed or receives the broadcast, never neither.
func (rl *readLoop) addObserver(ctx context.Context) <-chan bool {
	ch := make(chan bool, readObserverBufSize)

	rl.mu.Lock()
	ch <- rl.snapshots.Get(rl.roomID)
	if rl.terminated() {
		rl.mu.Unlock()
		close(ch)
		return ch
	}
	id := rl.nextID
	rl.nextID++
	rl.observers[id] = ch
	rl.mu.Unlock()

	go func() {
		select {
		case <-rl.done:
		case <-ctx.Done():
			rl.mu.Lock()
			if _, ok := rl.observers[id]; ok {
				delete(rl.observers, id)
				close(ch)
			}
			rl.mu.Unlock()
		}
	}()

	return ch
}

func (rl *readLoop) terminated() bool {
	select {
	case <-rl.done:
		return true
	default:
		return false
	}
}

// ReadStatusStream returns the room's live read-status stream. The merge
// behind it is built once per room per session; the returned channel is an
// observer on it, seeded immediately with the last cached value (false if
// the room was never observed).
func (s *Service) ReadStatusStream(ctx context.Context, room ChatRoom) (<-chan bool, error) {
	rl, err := s.ensureReadLoop(room)
	if err != nil {
		return nil, err
	}
	return rl.addObserver(ctx), nil
}

// MarkAsRead records that the user has acknowledged the room. The snapshot
// is updated synchronously, so IsRead reflects the mark before the stream
// even emits; the mark is then pushed into the room's trigger.
func (s *Service) MarkAsRead(room ChatRoom) {
	s.snapshots.Set(room.ID, true)

	s.mu.Lock()
	trigger := s.markTriggerLocked(room.ID)
	s.mu.Unlock()

	select {
	case trigger <- true:
	default:
		// Trigger buffer full; the snapshot already carries the mark.
	}
}

// IsRead reports the last known read status of the room. A room that was
// never observed is unread.
func (s *Service) IsRead(room ChatRoom) bool {
	return s.snapshots.Get(room.ID)
}

// ensureReadLoop lazily builds the room's merge loop. The map entry is
// inserted before the inbound stream is requested, so the Watch side effect
// that lands back here sees the entry and does not recurse.
func (s *Service) ensureReadLoop(room ChatRoom) (*readLoop, error) {
	s.mu.Lock()
	if rl, ok := s.reads[room.ID]; ok && !rl.terminated() {
		s.mu.Unlock()
		return rl, nil
	}

	rl := newReadLoop(room.ID, s.snapshots)
	s.reads[room.ID] = rl
	trigger := s.markTriggerLocked(room.ID)
	sess := s.session
	s.mu.Unlock()

	inbound, err := s.Watch(sess.ctx, room)
	if err != nil {
		s.mu.Lock()
		if s.reads[room.ID] == rl {
			delete(s.reads, room.ID)
		}
		s.mu.Unlock()
		return nil, err
	}

	go rl.run(sess.ctx, inbound, trigger)
	return rl, nil
}
