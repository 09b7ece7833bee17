package idgen

import "github.com/google/uuid"

// Generator produces identifiers that can be mocked for testing
type Generator interface {
	// NewID returns a fresh unique identifier with the given prefix
	NewID(prefix string) string
}

// UUIDGenerator implements Generator with random (v4) UUIDs
type UUIDGenerator struct{}

// New creates a new UUIDGenerator
func New() *UUIDGenerator {
	return &UUIDGenerator{}
}

// NewID returns prefix followed by a random UUID
func (g *UUIDGenerator) NewID(prefix string) string {
	return prefix + uuid.NewString()
}
