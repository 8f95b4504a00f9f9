// Package bus owns the single physical connection to the message bus. It
// wraps the NATS client behind a small transport seam so the rest of the
// client (and the tests) never touch the broker library directly, and it
// exposes a lazy, idempotent connection manager that configures itself from
// the current session token.
package bus

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/talent-catalog/chat-client/internal/metrics"
)

// Subscription is a cancellable subscription on a single bus topic.
type Subscription interface {
	Unsubscribe() error
}

// Conn is the minimal transport surface the chat client needs from the bus.
type Conn interface {
	Subscribe(subject string, handler func(data []byte)) (Subscription, error)
	Publish(subject string, data []byte) error
	Drain() error
}

// TokenSource supplies the current session bearer token. An empty string
// means no user is logged in.
type TokenSource interface {
	Token() string
}

// Dialer opens a physical bus connection with the given config and token.
type Dialer func(cfg Config, token string) (Conn, error)

// Config holds bus connection settings.
type Config struct {
	URL           string        // nats://host:4222
	ClientName    string        // connection name prefix for identification
	PingInterval  time.Duration // client-to-server heartbeat
	ReconnectWait time.Duration // time between automatic reconnect attempts
}

// DefaultConfig returns sensible defaults: a 20s client-to-server heartbeat
// and automatic reconnection every 5s, retrying forever.
func DefaultConfig() Config {
	return Config{
		URL:           "nats://localhost:4222",
		ClientName:    "chat-client",
		PingInterval:  20 * time.Second,
		ReconnectWait: 5 * time.Second,
	}
}

// natsConn adapts *nats.Conn to the Conn interface.
type natsConn struct {
	nc *nats.Conn
}

func (c *natsConn) Subscribe(subject string, handler func(data []byte)) (Subscription, error) {
	return c.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

func (c *natsConn) Publish(subject string, data []byte) error {
	return c.nc.Publish(subject, data)
}

func (c *natsConn) Drain() error {
	return c.nc.Drain()
}

// DialNATS opens a NATS connection configured per cfg, authenticating with
// the session token. Transient drops after the initial connect are handled
// by the client's own reconnect loop and are logged, never surfaced.
func DialNATS(cfg Config, token string) (Conn, error) {
	name := cfg.ClientName + "-" + shortID()

	opts := []nats.Option{
		nats.Name(name),
		nats.Token(token),
		nats.PingInterval(cfg.PingInterval),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(-1), // retry forever
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			metrics.BusConnected.Set(0)
			if err != nil {
				log.Printf("[bus] disconnected: %v", err)
			} else {
				log.Printf("[bus] disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			metrics.BusConnected.Set(1)
			metrics.BusReconnects.Inc()
			log.Printf("[bus] reconnected to %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Printf("[bus] connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}

	log.Printf("[bus] connected to %s as %s", nc.ConnectedUrl(), name)
	return &natsConn{nc: nc}, nil
}

// shortID returns a short unique suffix for the connection name.
func shortID() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}
