package model

import "time"

// ProfileID identifies a durable user profile across connections
type ProfileID string

// ConnectionID identifies a single live socket connection.
// It is only stable for the lifetime of that connection.
type ConnectionID string

// Profile is the durable, storage-backed user record
type Profile struct {
	ID           ProfileID  `json:"id"`
	Username     string     `json:"username"` // login username (immutable)
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"password_hash"` // bcrypt hash
	Appearance   Appearance `json:"appearance"`
	LastPosition *Position  `json:"last_position,omitempty"` // nil until the first checkpoint
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// PlayerState is the live state of one connected player.
// Owned by the presence registry while the connection is open.
type PlayerState struct {
	ID          ConnectionID `json:"id"`
	IdentityID  ProfileID    `json:"identityId"`
	DisplayName string       `json:"displayName"`
	Appearance  Appearance   `json:"appearance"`
	Position    Position     `json:"position"`
	Facing      Facing       `json:"facing"`
	IsMoving    bool         `json:"isMoving"`
}
