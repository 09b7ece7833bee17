package storage

import (
	"context"

	"github.com/mcoot/tileworld/internal/model"
)

// ProfileStore defines the interface for durable profile persistence
type ProfileStore interface {
	// Profile operations
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error)

	// Checkpoint operations, used by persistence sync
	UpdatePosition(ctx context.Context, id model.ProfileID, pos model.Position) error
	UpdateAppearance(ctx context.Context, id model.ProfileID, appearance model.Appearance) error
}

// Closer is implemented by stores that hold network connections
type Closer interface {
	Close() error
}
