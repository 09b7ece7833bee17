package relay

import (
	"time"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/protocol"
)

// Session is one live client connection as seen by the relay
type Session interface {
	ID() model.ConnectionID
	// Send queues an encoded frame. Returns false if the frame was dropped.
	Send(msg []byte) bool
	// Close ends the connection with a human-readable reason
	Close(reason string)
}

// Checkpointer receives fire-and-forget persistence requests
type Checkpointer interface {
	SavePosition(id model.ProfileID, pos model.Position)
	SaveAppearance(id model.ProfileID, appearance model.Appearance)
}

// MovementPolicy turns a reported move into the state the registry stores.
// Returning false drops the move without broadcasting it.
type MovementPolicy func(current model.PlayerState, reported protocol.MovePayload) (model.PlayerState, bool)

// ApplyReportedMovement trusts the client's reported position and facing
func ApplyReportedMovement(current model.PlayerState, reported protocol.MovePayload) (model.PlayerState, bool) {
	current.Position = reported.Position
	current.Facing = reported.Facing
	current.IsMoving = true
	return current, true
}

// SessionPolicy controls how many live connections one identity may hold
type SessionPolicy string

const (
	// SessionMulti allows any number of connections per identity
	SessionMulti SessionPolicy = "multi"
	// SessionSingle closes an identity's older connection when a new one joins
	SessionSingle SessionPolicy = "single"
)

// Close reasons sent to sessions the relay ends itself
const (
	ReasonSessionReplaced = "session replaced"
	ReasonShuttingDown    = "server shutting down"
)

// Config holds configuration for the relay
type Config struct {
	Spawn              model.Position
	SessionPolicy      SessionPolicy
	CheckpointInterval time.Duration // zero disables periodic checkpoints
	CommandBuffer      int
}

// DefaultConfig returns default relay configuration
func DefaultConfig() Config {
	return Config{
		Spawn:         model.Position{X: 400, Y: 300},
		SessionPolicy: SessionMulti,
		CommandBuffer: 256,
	}
}
