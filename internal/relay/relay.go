// Package relay owns the player registry and fans events out to connected sessions.
//
// All registry mutation and broadcast happens on the single goroutine started by Run,
// so events are applied in the order they were received.
package relay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mcoot/tileworld/internal/dependencies/clock"
	"github.com/mcoot/tileworld/internal/feed"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/presence"
	"github.com/mcoot/tileworld/internal/protocol"
)

// ErrStopped is returned by calls made after the relay has shut down
var ErrStopped = errors.New("relay stopped")

type commandKind int

const (
	cmdJoin commandKind = iota
	cmdInbound
	cmdLeave
	cmdBarrier
)

type command struct {
	kind    commandKind
	session Session
	profile *model.Profile
	id      model.ConnectionID
	inbound protocol.Inbound
	result  chan error
}

// member is the relay's private bookkeeping for one registered connection
type member struct {
	session    Session
	identityID model.ProfileID
	joinedAt   time.Time
	checkpoint model.Position
}

// Relay processes joins, client events and disconnects in order
type Relay struct {
	registry presence.Registry
	sync     Checkpointer
	feed     feed.Publisher
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config
	movement MovementPolicy

	commands chan command
	done     chan struct{}

	// owned by the Run goroutine
	members map[model.ConnectionID]*member
}

// Option customizes a Relay
type Option func(*Relay)

// WithMovementPolicy replaces ApplyReportedMovement
func WithMovementPolicy(p MovementPolicy) Option {
	return func(r *Relay) {
		r.movement = p
	}
}

// WithFeed mirrors presence events to an external publisher
func WithFeed(p feed.Publisher) Option {
	return func(r *Relay) {
		r.feed = p
	}
}

// New creates a Relay. The registry must not be mutated by anything else.
func New(registry presence.Registry, sync Checkpointer, clock clock.Clock, logger *slog.Logger, cfg Config, opts ...Option) *Relay {
	if cfg.CommandBuffer <= 0 {
		cfg.CommandBuffer = DefaultConfig().CommandBuffer
	}
	if cfg.SessionPolicy == "" {
		cfg.SessionPolicy = SessionMulti
	}
	r := &Relay{
		registry: registry,
		sync:     sync,
		feed:     feed.Nop{},
		clock:    clock,
		logger:   logger.With(slog.String("component", "relay")),
		cfg:      cfg,
		movement: ApplyReportedMovement,
		commands: make(chan command, cfg.CommandBuffer),
		done:     make(chan struct{}),
		members:  make(map[model.ConnectionID]*member),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Join registers an authenticated session and sends it the initial world state.
// Returns once the player is visible to everyone else.
func (r *Relay) Join(ctx context.Context, session Session, profile *model.Profile) error {
	result := make(chan error, 1)
	if err := r.submit(ctx, command{kind: cmdJoin, session: session, profile: profile, result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

// Dispatch queues a decoded client event for the connection
func (r *Relay) Dispatch(ctx context.Context, id model.ConnectionID, in protocol.Inbound) error {
	return r.submit(ctx, command{kind: cmdInbound, id: id, inbound: in})
}

// Leave queues the disconnect of a connection
func (r *Relay) Leave(id model.ConnectionID) {
	// Leave must not be lost to a cancelled request context
	_ = r.submit(context.Background(), command{kind: cmdLeave, id: id})
}

// Barrier returns once every command queued before it has been processed
func (r *Relay) Barrier(ctx context.Context) error {
	result := make(chan error, 1)
	if err := r.submit(ctx, command{kind: cmdBarrier, result: result}); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

// Done is closed once Run has returned
func (r *Relay) Done() <-chan struct{} {
	return r.done
}

func (r *Relay) submit(ctx context.Context, cmd command) error {
	select {
	case <-r.done:
		return ErrStopped
	default:
	}
	select {
	case r.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrStopped
	}
}

// Run processes commands until ctx is cancelled, then disconnects every session
func (r *Relay) Run(ctx context.Context) {
	defer close(r.done)

	var tick <-chan time.Time
	if r.cfg.CheckpointInterval > 0 {
		ticker := r.clock.NewTicker(r.cfg.CheckpointInterval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	r.logger.Info("relay started",
		slog.String("session_policy", string(r.cfg.SessionPolicy)),
		slog.Duration("checkpoint_interval", r.cfg.CheckpointInterval))

	for {
		select {
		case cmd := <-r.commands:
			r.handle(cmd)
		case <-tick:
			r.checkpoint()
		case <-ctx.Done():
			r.shutdown()
			return
		}
	}
}

func (r *Relay) handle(cmd command) {
	switch cmd.kind {
	case cmdJoin:
		cmd.result <- r.join(cmd.session, cmd.profile)
	case cmdInbound:
		r.dispatch(cmd.id, cmd.inbound)
	case cmdLeave:
		r.leave(cmd.id)
	case cmdBarrier:
		cmd.result <- nil
	}
}

func (r *Relay) shutdown() {
	count := len(r.members)
	for id, m := range r.members {
		r.leave(id)
		m.session.Close(ReasonShuttingDown)
	}
	r.logger.Info("relay stopped", slog.Int("disconnected_players", count))
}
