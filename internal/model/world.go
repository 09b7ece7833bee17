package model

import "fmt"

// Position is a 2D coordinate in world units
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Facing is the compass direction an avatar looks towards
type Facing string

const (
	FacingUp    Facing = "up"
	FacingDown  Facing = "down"
	FacingLeft  Facing = "left"
	FacingRight Facing = "right"
)

// DefaultFacing is used for every freshly joined player
const DefaultFacing = FacingDown

// Valid reports whether f is one of the four known directions
func (f Facing) Valid() bool {
	switch f {
	case FacingUp, FacingDown, FacingLeft, FacingRight:
		return true
	}
	return false
}

// Delta returns the unit step for the direction in screen coordinates (y grows down)
func (f Facing) Delta() (dx, dy float64) {
	switch f {
	case FacingUp:
		return 0, -1
	case FacingDown:
		return 0, 1
	case FacingLeft:
		return -1, 0
	case FacingRight:
		return 1, 0
	}
	return 0, 0
}

// Appearance is the bundle of enumerated customization choices for an avatar
type Appearance struct {
	SkinColor  int `json:"skinColor"`
	HairStyle  int `json:"hairStyle"`
	HairColor  int `json:"hairColor"`
	ShirtColor int `json:"shirtColor"`
	PantsColor int `json:"pantsColor"`
	HatStyle   int `json:"hatStyle"` // -1 means no hat
}

// Bounds for each appearance choice, half-open [min, max)
const (
	SkinColorCount  = 10
	HairStyleCount  = 3
	HairColorCount  = 8
	ShirtColorCount = 8
	PantsColorCount = 4
	HatStyleCount   = 4
	NoHat           = -1
)

// DefaultAppearance returns the appearance given to new profiles
func DefaultAppearance() Appearance {
	return Appearance{HatStyle: NoHat}
}

// Validate checks every choice against its enumerated range
func (a Appearance) Validate() error {
	checks := []struct {
		name     string
		value    int
		min, max int
	}{
		{"skinColor", a.SkinColor, 0, SkinColorCount},
		{"hairStyle", a.HairStyle, 0, HairStyleCount},
		{"hairColor", a.HairColor, 0, HairColorCount},
		{"shirtColor", a.ShirtColor, 0, ShirtColorCount},
		{"pantsColor", a.PantsColor, 0, PantsColorCount},
		{"hatStyle", a.HatStyle, NoHat, HatStyleCount},
	}
	for _, c := range checks {
		if c.value < c.min || c.value >= c.max {
			return fmt.Errorf("%w: %s=%d not in [%d,%d)", ErrInvalidAppearance, c.name, c.value, c.min, c.max)
		}
	}
	return nil
}
