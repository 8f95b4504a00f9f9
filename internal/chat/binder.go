package chat

import (
	"log"

	"github.com/talent-catalog/chat-client/internal/auth"
)

// Binder reacts to login-state transitions. On logout it fires the global
// session cancellation and deactivates the bus connection, leaving the
// subscription and trigger maps populated but inert. On login it arms a
// fresh cancellation scope; actual resubscription stays lazy via Watch.
type Binder struct {
	svc    *Service
	conns  Bus
	events <-chan auth.State
	cancel func() // releases the auth subscription
	done   chan struct{}
}

// NewBinder subscribes to the authenticator's login-state events and starts
// reacting to transitions. Close must be called to release the subscription
// when the owning scope shuts down.
func NewBinder(svc *Service, conns Bus, authn *auth.Authenticator) *Binder {
	events, cancel := authn.Events()
	b := &Binder{
		svc:    svc,
		conns:  conns,
		events: events,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Binder) run() {
	defer close(b.done)

	// The first event is the seeded current state; it establishes the
	// baseline without triggering a transition.
	st, ok := <-b.events
	if !ok {
		return
	}
	loggedIn := st.LoggedIn

	for st := range b.events {
		switch {
		case loggedIn && !st.LoggedIn:
			log.Printf("[binder] logout: tearing down chat subscriptions")
			b.svc.TeardownAll()
			b.conns.Deactivate()
			loggedIn = false

		case !loggedIn && st.LoggedIn:
			log.Printf("[binder] login subject=%q: arming new session", st.Identity.Subject)
			b.svc.ResetSession()
			loggedIn = true
		}
	}
}

// Close releases the binder's own event subscription and waits for its loop
// to exit, guaranteeing no dangling listener remains.
func (b *Binder) Close() {
	b.cancel()
	<-b.done
}
