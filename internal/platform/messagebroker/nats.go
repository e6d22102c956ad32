package messagebroker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Message is a broker message as seen by subscribers.
type Message interface {
	Subject() string
	Data() []byte
}

// Subscription represents an active subscription.
type Subscription interface {
	Unsubscribe() error
	Drain() error
}

// Client is the broker surface used by the rest of the codebase. Handlers and
// tests depend on this interface rather than the concrete NATS client.
type Client interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Subscribe(ctx context.Context, subject, queueGroup string, handler func(msg Message)) (Subscription, error)
	Close()
}

// NATSClient wraps a core NATS connection.
type NATSClient struct {
	conn   *nats.Conn
	logger *slog.Logger
}

type natsMessage struct {
	msg *nats.Msg
}

func (m natsMessage) Subject() string { return m.msg.Subject }
func (m natsMessage) Data() []byte    { return m.msg.Data }

// NewNATSClient connects to NATS with reconnect handling.
// natsURL example: "nats://localhost:4222"
func NewNATSClient(natsURL string, logger *slog.Logger, appName string) (*NATSClient, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name(appName),
		nats.Timeout(5*time.Second),
		nats.PingInterval(20*time.Second),
		nats.MaxPingsOutstanding(3),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed", "last_error", nc.LastError())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
	}
	return &NATSClient{conn: conn, logger: logger}, nil
}

// Publish sends data to the given subject.
func (c *NATSClient) Publish(_ context.Context, subject string, data []byte) error {
	if err := c.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to subject %q: %w", subject, err)
	}
	return nil
}

// Subscribe registers a handler for the subject. A non-empty queueGroup makes
// the subscription load-balanced across subscribers in the same group.
func (c *NATSClient) Subscribe(_ context.Context, subject, queueGroup string, handler func(msg Message)) (Subscription, error) {
	natsHandler := func(msg *nats.Msg) {
		handler(natsMessage{msg: msg})
	}

	var sub *nats.Subscription
	var err error
	if queueGroup != "" {
		sub, err = c.conn.QueueSubscribe(subject, queueGroup, natsHandler)
	} else {
		sub, err = c.conn.Subscribe(subject, natsHandler)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to subject %q: %w", subject, err)
	}
	return sub, nil
}

// Close drains and closes the connection.
func (c *NATSClient) Close() {
	if c.conn != nil && !c.conn.IsClosed() {
		if err := c.conn.Drain(); err != nil {
			c.logger.Warn("Failed to drain NATS connection", "error", err)
		}
		c.conn.Close()
	}
}
