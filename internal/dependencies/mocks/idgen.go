package mocks

import (
	"fmt"
	"sync"

	"github.com/mcoot/tileworld/internal/dependencies/idgen"
)

// MockIDs is a mock implementation of idgen.Generator for testing
type MockIDs struct {
	mu sync.Mutex

	// Queued is a queue of ids to hand out before falling back to a counter
	Queued []string
	next   int
	count  int
}

// Ensure MockIDs implements Generator
var _ idgen.Generator = (*MockIDs)(nil)

// NewMockIDs creates a new MockIDs
func NewMockIDs() *MockIDs {
	return &MockIDs{}
}

// NewID returns the next queued id, or prefix plus a sequence number if none remain
func (g *MockIDs) NewID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.next < len(g.Queued) {
		id := g.Queued[g.next]
		g.next++
		return id
	}
	g.count++
	return fmt.Sprintf("%s%d", prefix, g.count)
}

// Queue adds ids to the result queue
func (g *MockIDs) Queue(ids ...string) {
	g.mu.Lock()
	g.Queued = append(g.Queued, ids...)
	g.mu.Unlock()
}

// Reset clears all queued ids and the counter
func (g *MockIDs) Reset() {
	g.mu.Lock()
	g.Queued = nil
	g.next = 0
	g.count = 0
	g.mu.Unlock()
}
