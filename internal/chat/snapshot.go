package chat

import (
	"sync"

	"github.com/talent-catalog/chat-client/internal/metrics"
)

// SnapshotStore is the synchronously readable cache of last-known read
// status per room. Get for an unknown room must return false (unread).
type SnapshotStore interface {
	Get(roomID int64) bool
	Set(roomID int64, read bool)
}

// MemorySnapshots is the default in-process SnapshotStore.
type MemorySnapshots struct {
	mu     sync.RWMutex
	status map[int64]bool
	unread int
}

// NewMemorySnapshots creates an empty in-memory snapshot store.
func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{status: make(map[int64]bool)}
}

func (s *MemorySnapshots) Get(roomID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status[roomID]
}

func (s *MemorySnapshots) Set(roomID int64, read bool) {
	s.mu.Lock()
	prev, known := s.status[roomID]
	s.status[roomID] = read
	switch {
	case !known && !read:
		s.unread++
	case known && prev && !read:
		s.unread++
	case known && !prev && read:
		s.unread--
	}
	metrics.UnreadRooms.Set(float64(s.unread))
	s.mu.Unlock()
}
