// Package feed mirrors presence events onto NATS subjects for external observers.
//
// Subjects are <prefix>.<event type>, e.g. tileworld.presence.player_joined.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/mcoot/tileworld/internal/model"
)

// DefaultSubjectPrefix is used when no prefix is configured
const DefaultSubjectPrefix = "tileworld.presence"

// Publisher receives presence events from the relay.
// Publish must not block on network I/O failures.
type Publisher interface {
	Publish(event model.Event)
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(model.Event) {}
func (Nop) Close() error        { return nil }

// NATSPublisher publishes events as JSON to NATS
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// Ensure publishers implement the interface
var (
	_ Publisher = Nop{}
	_ Publisher = (*NATSPublisher)(nil)
)

// Connect dials the NATS server at url
func Connect(url, prefix string, logger *slog.Logger) (*NATSPublisher, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	logger = logger.With(slog.String("component", "feed"))
	conn, err := nats.Connect(url,
		nats.Name("tileworld-feed"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("feed disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("feed reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the subject an event type is published on
func Subject(prefix string, t model.EventType) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + "." + string(t)
}

func (p *NATSPublisher) Publish(event model.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("feed event encode failed",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
		return
	}
	if err := p.conn.Publish(Subject(p.prefix, event.Type), data); err != nil {
		p.logger.Warn("feed publish failed",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()))
	}
}

// Flush waits until the server has processed all published events
func (p *NATSPublisher) Flush() error {
	return p.conn.Flush()
}

// Close drains pending events and closes the connection
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Subscription is a live feed subscription
type Subscription struct {
	conn *nats.Conn
	sub  *nats.Subscription
}

// Subscribe delivers every feed event under prefix to fn until the subscription is closed.
// The subscription is registered with the server before Subscribe returns.
func Subscribe(url, prefix string, fn func(model.Event, json.RawMessage)) (*Subscription, error) {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	conn, err := nats.Connect(url, nats.Name("tileworld-feed-subscriber"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	sub, err := conn.Subscribe(prefix+".>", func(msg *nats.Msg) {
		var raw struct {
			model.Event
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.Unmarshal(msg.Data, &raw); err != nil {
			return
		}
		fn(raw.Event, raw.Payload)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %s: %w", prefix, err)
	}
	if err := conn.Flush(); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscription{conn: conn, sub: sub}, nil
}

// Close unsubscribes and closes the connection
func (s *Subscription) Close() error {
	err := s.sub.Unsubscribe()
	s.conn.Close()
	return err
}
