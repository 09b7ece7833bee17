package client

import "github.com/mcoot/tileworld/internal/model"

// MoveSpeed is how far one Step moves the local player, in world units
const MoveSpeed = 3.0

// Walkable reports whether the local player may stand at pos
type Walkable func(pos model.Position) bool

// OpenWorld lets the player walk anywhere
func OpenWorld(model.Position) bool { return true }

// Bounds is an axis-aligned walkable rectangle
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Walkable reports whether pos lies inside the rectangle (edges included)
func (b Bounds) Walkable(pos model.Position) bool {
	return pos.X >= b.MinX && pos.X <= b.MaxX && pos.Y >= b.MinY && pos.Y <= b.MaxY
}

// DefaultBounds matches the 30x25 map of 32px tiles, keeping a sprite fully on screen
var DefaultBounds = Bounds{MinX: 16, MinY: 16, MaxX: 30*32 - 48, MaxY: 25*32 - 64}
