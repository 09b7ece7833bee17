package model

import "time"

// EventType identifies the type of presence event published to observers
type EventType string

const (
	EventPlayerJoined      EventType = "player_joined"
	EventPlayerLeft        EventType = "player_left"
	EventAppearanceChanged EventType = "appearance_changed"
	EventChatMessage       EventType = "chat_message"
)

// Event is the base structure for all presence events
type Event struct {
	Type         EventType    `json:"type"`
	Timestamp    time.Time    `json:"timestamp"`
	ConnectionID ConnectionID `json:"connection_id"`
	IdentityID   ProfileID    `json:"identity_id"`
	Payload      any          `json:"payload,omitempty"`
}

// PlayerJoinedPayload contains data for player joined events
type PlayerJoinedPayload struct {
	DisplayName string   `json:"display_name"`
	Position    Position `json:"position"`
}

// PlayerLeftPayload contains data for player left events
type PlayerLeftPayload struct {
	DisplayName  string        `json:"display_name"`
	LastPosition Position      `json:"last_position"`
	Duration     time.Duration `json:"duration"`
}

// AppearanceChangedPayload contains data for appearance changed events
type AppearanceChangedPayload struct {
	Appearance Appearance `json:"appearance"`
}

// ChatMessage is a relayed chat line. Never persisted.
type ChatMessage struct {
	ID          ConnectionID `json:"id"`
	DisplayName string       `json:"displayName"`
	Text        string       `json:"text"`
	Timestamp   int64        `json:"timestamp"` // unix milliseconds
}
