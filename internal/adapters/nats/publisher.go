package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/routegate/internal/core/domain"
	"github.com/samirrijal/routegate/internal/core/ports"
)

// Subjects and stream used for route events.
const (
	RouteEventsStream  = "ROUTE_EVENTS"
	RouteEventsSubject = "routegate.route.>"
	routeComputedBase  = "routegate.route.computed."
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and ensures the route event stream exists.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

// ensureStream creates the route event stream, or updates it when it exists.
func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:      RouteEventsStream,
		Subjects:  []string{RouteEventsSubject},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// PublishRouteComputed publishes under routegate.route.computed.<costing>.
func (p *Publisher) PublishRouteComputed(ctx context.Context, event *domain.RouteComputed) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(RouteComputedSubject(event.Costing), data, nats.Context(ctx), nats.MsgId(event.ID))
	return err
}

// RouteComputedSubject returns the subject for a costing model. The costing
// always becomes exactly one subject token.
func RouteComputedSubject(costing string) string {
	return routeComputedBase + subjectToken(costing)
}

// subjectToken maps s onto [A-Za-z0-9_-]; anything else, including the
// token separator and wildcards, becomes '_'.
func subjectToken(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Conn exposes the underlying connection for readiness checks.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("routegate"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
