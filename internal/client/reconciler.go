package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mcoot/tileworld/internal/dependencies/clock"
	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

// Client-side display limits
const (
	ChatHistory    = 50
	BubbleDuration = 5 * time.Second
)

// ErrNotInitialized is returned for local actions before the init event arrived
var ErrNotInitialized = errors.New("no init received yet")

// Sender delivers one client event to the server
type Sender interface {
	Send(eventType string, payload any) error
}

type bubble struct {
	text    string
	expires time.Time
}

// Reconciler keeps the client's view of the world consistent with server events.
// The own player is simulated locally; everyone else is mirrored.
// Safe for concurrent use by a reader goroutine and an input loop.
type Reconciler struct {
	mu sync.Mutex

	sender   Sender
	clock    clock.Clock
	walkable Walkable

	self        model.PlayerState
	initialized bool
	others      *Mirror
	chat        []model.ChatMessage
	bubbles     map[model.ConnectionID]bubble
}

// NewReconciler creates a Reconciler. A nil clock uses the system clock;
// a nil walkable allows every position.
func NewReconciler(sender Sender, clk clock.Clock, walkable Walkable) *Reconciler {
	if clk == nil {
		clk = clock.New()
	}
	if walkable == nil {
		walkable = OpenWorld
	}
	return &Reconciler{
		sender:   sender,
		clock:    clk,
		walkable: walkable,
		others:   NewMirror(),
		bubbles:  make(map[model.ConnectionID]bubble),
	}
}

// Apply folds one server event into local state. Unknown types are ignored.
func (r *Reconciler) Apply(env protocol.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch env.Type {
	case protocol.TypeInit:
		var p protocol.InitPayload
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.self = p.Self
		r.initialized = true
		r.others.Replace(p.Others)
		r.bubbles = make(map[model.ConnectionID]bubble)

	case protocol.TypeJoined:
		var p model.PlayerState
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.others.Insert(p)

	case protocol.TypeMoved:
		var p protocol.MovedPayload
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.others.Merge(p.ID, func(s *model.PlayerState) {
			s.Position = p.Position
			s.Facing = p.Facing
			s.IsMoving = p.IsMoving
		})

	case protocol.TypeStopped:
		var p protocol.StoppedPayload
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.others.Merge(p.ID, func(s *model.PlayerState) {
			s.Facing = p.Facing
			s.IsMoving = false
		})

	case protocol.TypeAppearanceUpdated:
		var p protocol.AppearanceUpdatedPayload
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.others.Merge(p.ID, func(s *model.PlayerState) {
			s.Appearance = p.Appearance
		})

	case protocol.TypeLeft:
		var p protocol.LeftPayload
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.others.Delete(p.ID)
		delete(r.bubbles, p.ID)

	case protocol.TypeChatLog:
		var p model.ChatMessage
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		r.chat = append(r.chat, p)
		if len(r.chat) > ChatHistory {
			r.chat = append([]model.ChatMessage(nil), r.chat[len(r.chat)-ChatHistory:]...)
		}

	case protocol.TypeChatBubble:
		var p protocol.ChatBubblePayload
		if err := unmarshal(env, &p); err != nil {
			return err
		}
		if _, ok := r.others.Get(p.ID); ok {
			r.showBubble(p.ID, p.Text)
		}
	}
	return nil
}

// Step moves the own player one MoveSpeed in the given direction.
// Local state changes first; the move is reported only if the target is walkable.
func (r *Reconciler) Step(facing model.Facing) (moved bool, err error) {
	if !facing.Valid() {
		return false, fmt.Errorf("%w: %q", model.ErrInvalidFacing, facing)
	}

	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return false, ErrNotInitialized
	}
	dx, dy := facing.Delta()
	next := model.Position{X: r.self.Position.X + dx*MoveSpeed, Y: r.self.Position.Y + dy*MoveSpeed}

	r.self.Facing = facing
	r.self.IsMoving = true
	if !r.walkable(next) {
		r.mu.Unlock()
		return false, nil
	}
	r.self.Position = next
	payload := protocol.MovePayload{Position: next, Facing: facing, IsMoving: true}
	r.mu.Unlock()

	return true, r.sender.Send(protocol.TypeMove, payload)
}

// Stop ends the own player's walk animation and reports it
func (r *Reconciler) Stop() error {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	r.self.IsMoving = false
	payload := protocol.StopPayload{Facing: r.self.Facing}
	r.mu.Unlock()

	return r.sender.Send(protocol.TypeStop, payload)
}

// Say sends a chat line and shows it above the own player straight away
func (r *Reconciler) Say(text string) error {
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	r.showBubble(r.self.ID, protocol.Truncate(text, protocol.MaxChatLength))
	r.mu.Unlock()

	return r.sender.Send(protocol.TypeChat, protocol.ChatPayload{Text: text})
}

// ChangeAppearance validates, applies locally and reports a new appearance
func (r *Reconciler) ChangeAppearance(a model.Appearance) error {
	if err := a.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	if !r.initialized {
		r.mu.Unlock()
		return ErrNotInitialized
	}
	r.self.Appearance = a
	r.mu.Unlock()

	return r.sender.Send(protocol.TypeAppearanceChange, protocol.AppearanceChangePayload{Appearance: a})
}

// Self returns the own player's state and whether init has arrived
func (r *Reconciler) Self() (model.PlayerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.self, r.initialized
}

// Others returns the mirrored players in join order
func (r *Reconciler) Others() []model.PlayerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.others.List()
}

// Other returns one mirrored player
func (r *Reconciler) Other(id model.ConnectionID) (model.PlayerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.others.Get(id)
}

// ChatLog returns up to the last ChatHistory messages, oldest first
func (r *Reconciler) ChatLog() []model.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.ChatMessage(nil), r.chat...)
}

// Bubble returns the chat bubble currently shown above a player, if any
func (r *Reconciler) Bubble(id model.ConnectionID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bubbles[id]
	if !ok {
		return "", false
	}
	if !r.clock.Now().Before(b.expires) {
		delete(r.bubbles, id)
		return "", false
	}
	return b.text, true
}

// showBubble must be called with mu held. A newer line replaces the old one and restarts the timer.
func (r *Reconciler) showBubble(id model.ConnectionID, text string) {
	r.bubbles[id] = bubble{text: text, expires: r.clock.Now().Add(BubbleDuration)}
}

func unmarshal(env protocol.Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return nil
}
