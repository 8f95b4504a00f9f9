package bus

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/talent-catalog/chat-client/internal/metrics"
)

// ErrNoToken is returned by EnsureActive when no session token is available,
// i.e. no user is logged in.
var ErrNoToken = errors.New("bus: no session token available")

// ErrNotActive is returned by Subscribe and Publish when the connection has
// been deactivated between activation and use.
var ErrNotActive = errors.New("bus: connection not active")

// Manager maintains exactly one physical bus connection, built lazily on
// first use. The session token is read fresh from the TokenSource each time
// the connection is configured; a token rotated mid-session is only picked
// up by a Deactivate/EnsureActive cycle.
type Manager struct {
	cfg    Config
	tokens TokenSource
	dial   Dialer

	mu   sync.Mutex
	conn Conn // nil while not configured
}

// NewManager creates a Manager that dials NATS. No connection is opened
// until EnsureActive is first called.
func NewManager(cfg Config, tokens TokenSource) *Manager {
	return &Manager{
		cfg:    cfg,
		tokens: tokens,
		dial:   DialNATS,
	}
}

// EnsureActive configures and opens the bus connection if it is not already
// active. Calling it again while active is a no-op. Only the initial dial
// can fail; transient drops afterwards are retried by the transport.
func (m *Manager) EnsureActive() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn != nil {
		return nil
	}

	token := m.tokens.Token()
	if token == "" {
		return ErrNoToken
	}

	conn, err := m.dial(m.cfg, token)
	if err != nil {
		return fmt.Errorf("bus: connect: %w", err)
	}

	m.conn = conn
	metrics.BusConnected.Set(1)
	return nil
}

// Deactivate tears down the physical connection and resets the configured
// state, so a later EnsureActive reconfigures from scratch with whatever
// token is current at that point. Calling it while inactive is a no-op.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil {
		return
	}

	if err := m.conn.Drain(); err != nil {
		log.Printf("[bus] drain: %v", err)
	}
	m.conn = nil
	metrics.BusConnected.Set(0)
	log.Printf("[bus] deactivated")
}

// Subscribe activates the connection if needed and subscribes to a subject.
func (m *Manager) Subscribe(subject string, handler func(data []byte)) (Subscription, error) {
	if err := m.EnsureActive(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return nil, ErrNotActive
	}

	sub, err := conn.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("bus: subscribe %s: %w", subject, err)
	}
	return sub, nil
}

// Publish activates the connection if needed and publishes to a subject.
func (m *Manager) Publish(subject string, data []byte) error {
	if err := m.EnsureActive(); err != nil {
		return err
	}

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotActive
	}

	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("bus: publish %s: %w", subject, err)
	}
	return nil
}
