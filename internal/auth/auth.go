// Package auth tracks the current session token and fans login-state
// changes out to subscribers. It is the signal source the chat subsystem's
// lifecycle binder consumes; it does not manage sessions itself.
package auth

import (
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// eventBufSize buffers login-state events per subscriber.
const eventBufSize = 16

// Identity describes the logged-in user, as far as the session token tells.
type Identity struct {
	Subject   string
	ExpiresAt time.Time
}

// State is one login-state event: either a logged-in identity or "none".
type State struct {
	LoggedIn bool
	Identity Identity // zero value when logged out
}

// Authenticator holds the current session token and notifies subscribers on
// every login and logout.
type Authenticator struct {
	mu     sync.Mutex
	token  string
	ident  Identity
	subs   map[int]chan State
	nextID int
}

// NewAuthenticator creates an Authenticator in the logged-out state.
func NewAuthenticator() *Authenticator {
	return &Authenticator{subs: make(map[int]chan State)}
}

// Login stores the session token and broadcasts a logged-in event. The
// token is treated as a JWT for identity extraction only; a token that does
// not parse is still accepted, since verification is the backend's job.
func (a *Authenticator) Login(token string) {
	ident := identityFromToken(token)

	a.mu.Lock()
	a.token = token
	a.ident = ident
	a.broadcastLocked(State{LoggedIn: true, Identity: ident})
	a.mu.Unlock()

	log.Printf("[auth] logged in subject=%q", ident.Subject)
}

// Logout clears the session token and broadcasts a logged-out event.
func (a *Authenticator) Logout() {
	a.mu.Lock()
	a.token = ""
	a.ident = Identity{}
	a.broadcastLocked(State{})
	a.mu.Unlock()

	log.Printf("[auth] logged out")
}

// Token returns the current bearer token, or "" when logged out. It
// implements the token source consumed by the bus and directory clients.
func (a *Authenticator) Token() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token
}

// Identity returns the identity parsed from the current token.
func (a *Authenticator) Identity() (Identity, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ident, a.token != ""
}

// Events subscribes to login-state changes. The channel is seeded with the
// current state so subscribers need not wait for the next transition. The
// returned cancel func releases the subscription and closes the channel.
func (a *Authenticator) Events() (<-chan State, func()) {
	ch := make(chan State, eventBufSize)

	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.subs[id] = ch
	ch <- State{LoggedIn: a.token != "", Identity: a.ident}
	a.mu.Unlock()

	cancel := func() {
		a.mu.Lock()
		if sub, ok := a.subs[id]; ok {
			delete(a.subs, id)
			close(sub)
		}
		a.mu.Unlock()
	}
	return ch, cancel
}

func (a *Authenticator) broadcastLocked(st State) {
	for _, ch := range a.subs {
		select {
		case ch <- st:
		default:
			log.Printf("[auth] slow login-state subscriber, dropping event")
		}
	}
}

// identityFromToken extracts subject and expiry from the token's claims
// without verifying the signature; the client has no key and the backend
// rejects bad tokens anyway.
func identityFromToken(token string) Identity {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		log.Printf("[auth] token is not a parseable JWT: %v", err)
		return Identity{}
	}

	ident := Identity{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident
}
