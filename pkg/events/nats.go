package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "auractl.events"

// Conn is the subset of *nats.Conn the notifier needs.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Drain() error
	IsClosed() bool
}

// NATSNotifier publishes events as JSON on a single subject.
type NATSNotifier struct {
	conn    Conn
	subject string
}

// Connect dials url and returns a notifier publishing to subject. auractl is
// short lived, so reconnects are bounded rather than unlimited.
func Connect(url, subject string, logger *zap.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("auractl"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return NewNATSNotifier(nc, subject), nil
}

// NewNATSNotifier wraps an existing connection.
func NewNATSNotifier(conn Conn, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSNotifier{conn: conn, subject: subject}
}

// Subject returns the subject events are published to.
func (n *NATSNotifier) Subject() string {
	return n.subject
}

func (n *NATSNotifier) Notify(ctx context.Context, event Event) error {
	if n.conn == nil || n.conn.IsClosed() {
		return fmt.Errorf("nats not connected")
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := n.conn.Publish(n.subject, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", n.subject, err)
	}

	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return n.conn.FlushTimeout(timeout)
}

// Close drains pending messages and closes the connection.
func (n *NATSNotifier) Close() error {
	if n.conn == nil || n.conn.IsClosed() {
		return nil
	}
	return n.conn.Drain()
}

var (
	_ Notifier = (*NATSNotifier)(nil)
	_ Notifier = Nop{}
	_ Conn     = (*nats.Conn)(nil)
)
