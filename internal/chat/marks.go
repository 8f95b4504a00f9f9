package chat

// markTriggerBufSize buffers manual read marks pushed while the room's
// merge loop is not draining (e.g. between logout and the next login).
const markTriggerBufSize = 8

// markTriggerLocked returns the room's manual mark trigger, creating it on
// first use. Triggers are reused for the life of the process and never
// closed: closing would race concurrent MarkAsRead calls, and an undrained
// trigger is inert. Callers must hold s.mu.
func (s *Service) markTriggerLocked(roomID int64) chan bool {
	trigger, ok := s.marks[roomID]
	if !ok {
		trigger = make(chan bool, markTriggerBufSize)
		s.marks[roomID] = trigger
	}
	return trigger
}
