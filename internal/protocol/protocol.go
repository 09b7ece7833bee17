// Package protocol defines the websocket wire format between the relay and clients.
//
// Every frame is a JSON text message {"type": "<kind>", "payload": {...}}.
package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/mcoot/tileworld/internal/model"
)

// MaxChatLength is the number of characters kept from a chat message
const MaxChatLength = 100

// Envelope is the outer frame shared by both directions
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client to server event types
const (
	TypeMove             = "move"
	TypeStop             = "stop"
	TypeAppearanceChange = "appearanceChange"
	TypeChat             = "chat"
)

// Server to client event types
const (
	TypeInit              = "init"
	TypeJoined            = "joined"
	TypeMoved             = "moved"
	TypeStopped           = "stopped"
	TypeAppearanceUpdated = "appearanceUpdated"
	TypeLeft              = "left"
	TypeChatLog           = "chatLog"
	TypeChatBubble        = "chatBubble"
	TypeRejected          = "rejected"
)

// Kind is the closed set of events a client may send
type Kind int

const (
	KindMove Kind = iota + 1
	KindStop
	KindAppearanceChange
	KindChat
)

func (k Kind) String() string {
	switch k {
	case KindMove:
		return TypeMove
	case KindStop:
		return TypeStop
	case KindAppearanceChange:
		return TypeAppearanceChange
	case KindChat:
		return TypeChat
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Inbound payloads

type MovePayload struct {
	Position model.Position `json:"position"`
	Facing   model.Facing   `json:"facing"`
	IsMoving bool           `json:"isMoving"`
}

type StopPayload struct {
	Facing model.Facing `json:"facing"`
}

type AppearanceChangePayload struct {
	Appearance model.Appearance `json:"appearance"`
}

type ChatPayload struct {
	Text string `json:"text"`
}

// Wire shapes for inbound frames. Required fields are pointers so a
// missing or null value can be told apart from a zero one.

type moveFrame struct {
	Position *model.Position `json:"position"`
	Facing   model.Facing    `json:"facing"`
	IsMoving bool            `json:"isMoving"`
}

type appearanceFrame struct {
	Appearance *model.Appearance `json:"appearance"`
}

type chatFrame struct {
	Text *string `json:"text"`
}

// Inbound is a decoded and validated client event.
// Only the field matching Kind is set.
type Inbound struct {
	Kind       Kind
	Move       MovePayload
	Stop       StopPayload
	Appearance model.Appearance
	Text       string
}

// Outbound payloads

type InitPayload struct {
	Self   model.PlayerState   `json:"self"`
	Others []model.PlayerState `json:"others"`
}

type MovedPayload struct {
	ID       model.ConnectionID `json:"id"`
	Position model.Position     `json:"position"`
	Facing   model.Facing       `json:"facing"`
	IsMoving bool               `json:"isMoving"`
}

type StoppedPayload struct {
	ID     model.ConnectionID `json:"id"`
	Facing model.Facing       `json:"facing"`
}

type AppearanceUpdatedPayload struct {
	ID         model.ConnectionID `json:"id"`
	Appearance model.Appearance   `json:"appearance"`
}

type LeftPayload struct {
	ID model.ConnectionID `json:"id"`
}

type ChatBubblePayload struct {
	ID   model.ConnectionID `json:"id"`
	Text string             `json:"text"`
}

// RejectedPayload tells a client why its connection attempt failed
type RejectedPayload struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Decode parses and validates one client frame.
// Every failure wraps model.ErrMalformedEvent.
func Decode(data []byte) (Inbound, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", model.ErrMalformedEvent, err)
	}

	var in Inbound
	switch env.Type {
	case TypeMove:
		in.Kind = KindMove
		var p moveFrame
		if err := decodePayload(env, &p); err != nil {
			return Inbound{}, err
		}
		if p.Position == nil {
			return Inbound{}, missingField(env, "position")
		}
		in.Move = MovePayload{Position: *p.Position, Facing: p.Facing, IsMoving: p.IsMoving}
		if !in.Move.Facing.Valid() {
			return Inbound{}, fmt.Errorf("%w: %w %q", model.ErrMalformedEvent, model.ErrInvalidFacing, in.Move.Facing)
		}
	case TypeStop:
		in.Kind = KindStop
		if err := decodePayload(env, &in.Stop); err != nil {
			return Inbound{}, err
		}
		if !in.Stop.Facing.Valid() {
			return Inbound{}, fmt.Errorf("%w: %w %q", model.ErrMalformedEvent, model.ErrInvalidFacing, in.Stop.Facing)
		}
	case TypeAppearanceChange:
		in.Kind = KindAppearanceChange
		var p appearanceFrame
		if err := decodePayload(env, &p); err != nil {
			return Inbound{}, err
		}
		if p.Appearance == nil {
			return Inbound{}, missingField(env, "appearance")
		}
		if err := p.Appearance.Validate(); err != nil {
			return Inbound{}, fmt.Errorf("%w: %w", model.ErrMalformedEvent, err)
		}
		in.Appearance = *p.Appearance
	case TypeChat:
		in.Kind = KindChat
		var p chatFrame
		if err := decodePayload(env, &p); err != nil {
			return Inbound{}, err
		}
		if p.Text == nil {
			return Inbound{}, missingField(env, "text")
		}
		in.Text = *p.Text
	default:
		return Inbound{}, fmt.Errorf("%w: %w %q", model.ErrMalformedEvent, model.ErrUnknownEventType, env.Type)
	}
	return in, nil
}

func decodePayload(env Envelope, v any) error {
	if len(env.Payload) == 0 || bytes.Equal(bytes.TrimSpace(env.Payload), []byte("null")) {
		return fmt.Errorf("%w: %s has no payload", model.ErrMalformedEvent, env.Type)
	}
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", model.ErrMalformedEvent, env.Type, err)
	}
	return nil
}

func missingField(env Envelope, field string) error {
	return fmt.Errorf("%w: %s: missing %s", model.ErrMalformedEvent, env.Type, field)
}

// Encode wraps a payload in an envelope and marshals it
func Encode(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

// Truncate cuts text to at most limit characters
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}
