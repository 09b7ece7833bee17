// Package client is the Go client for the presence server: a websocket
// connection plus a local reconciler that mirrors the rest of the world.
package client

import "github.com/mcoot/tileworld/internal/model"

// Mirror is the client's copy of every other connected player, in join order
type Mirror struct {
	players map[model.ConnectionID]model.PlayerState
	order   []model.ConnectionID
}

// NewMirror creates an empty Mirror
func NewMirror() *Mirror {
	return &Mirror{players: make(map[model.ConnectionID]model.PlayerState)}
}

// Replace discards everything and loads the given snapshot
func (m *Mirror) Replace(players []model.PlayerState) {
	m.players = make(map[model.ConnectionID]model.PlayerState, len(players))
	m.order = m.order[:0]
	for _, p := range players {
		m.Insert(p)
	}
}

// Insert adds a player, or overwrites it if already known
func (m *Mirror) Insert(p model.PlayerState) {
	if _, ok := m.players[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.players[p.ID] = p
}

// Merge applies fn to a known player. Unknown ids are ignored.
func (m *Mirror) Merge(id model.ConnectionID, fn func(*model.PlayerState)) bool {
	p, ok := m.players[id]
	if !ok {
		return false
	}
	fn(&p)
	p.ID = id
	m.players[id] = p
	return true
}

// Delete forgets a player
func (m *Mirror) Delete(id model.ConnectionID) bool {
	if _, ok := m.players[id]; !ok {
		return false
	}
	delete(m.players, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns one player
func (m *Mirror) Get(id model.ConnectionID) (model.PlayerState, bool) {
	p, ok := m.players[id]
	return p, ok
}

// List returns every player in join order
func (m *Mirror) List() []model.PlayerState {
	out := make([]model.PlayerState, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.players[id])
	}
	return out
}

// Len returns the number of mirrored players
func (m *Mirror) Len() int {
	return len(m.players)
}
