// Package presence holds the process-wide set of connected players.
package presence

import (
	"sync"

	"github.com/mcoot/tileworld/internal/model"
)

// Registry maps live connections to their player state.
// Implementations must be safe for concurrent use.
type Registry interface {
	// Register adds a new player. Returns model.ErrAlreadyRegistered if the id exists.
	Register(id model.ConnectionID, state model.PlayerState) error
	// Get returns a copy of the player's state
	Get(id model.ConnectionID) (model.PlayerState, bool)
	// Update applies fn to the stored state. Reports false without calling fn if absent.
	Update(id model.ConnectionID, fn func(*model.PlayerState)) bool
	// Remove deletes the player and returns the final state
	Remove(id model.ConnectionID) (model.PlayerState, bool)
	// ListExcluding returns every other player in join order
	ListExcluding(id model.ConnectionID) []model.PlayerState
	// All returns every player in join order
	All() []model.PlayerState
	// Len returns the number of connected players
	Len() int
}

// MemoryRegistry is the in-process Registry
type MemoryRegistry struct {
	mu      sync.RWMutex
	players map[model.ConnectionID]model.PlayerState
	order   []model.ConnectionID // join order
}

// Ensure MemoryRegistry implements Registry
var _ Registry = (*MemoryRegistry)(nil)

// NewRegistry creates an empty registry
func NewRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		players: make(map[model.ConnectionID]model.PlayerState),
	}
}

func (r *MemoryRegistry) Register(id model.ConnectionID, state model.PlayerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[id]; ok {
		return model.ErrAlreadyRegistered
	}
	state.ID = id
	r.players[id] = state
	r.order = append(r.order, id)
	return nil
}

func (r *MemoryRegistry) Get(id model.ConnectionID) (model.PlayerState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.players[id]
	return state, ok
}

func (r *MemoryRegistry) Update(id model.ConnectionID, fn func(*model.PlayerState)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.players[id]
	if !ok {
		return false
	}
	fn(&state)
	state.ID = id
	r.players[id] = state
	return true
}

func (r *MemoryRegistry) Remove(id model.ConnectionID) (model.PlayerState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.players[id]
	if !ok {
		return model.PlayerState{}, false
	}
	delete(r.players, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return state, true
}

func (r *MemoryRegistry) ListExcluding(id model.ConnectionID) []model.PlayerState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.PlayerState, 0, len(r.order))
	for _, oid := range r.order {
		if oid == id {
			continue
		}
		out = append(out, r.players[oid])
	}
	return out
}

func (r *MemoryRegistry) All() []model.PlayerState {
	return r.ListExcluding("")
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
