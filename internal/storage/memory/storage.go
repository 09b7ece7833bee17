package memory

import (
	"context"
	"sync"
	"time"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// Storage is an in-memory implementation of the profile store.
// Profiles are copied in and out so callers never share memory with the store.
type Storage struct {
	mu sync.RWMutex

	profiles      map[model.ProfileID]*model.Profile
	usernameIndex map[string]model.ProfileID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		profiles:      make(map[model.ProfileID]*model.Profile),
		usernameIndex: make(map[string]model.ProfileID),
	}
}

// Ensure Storage implements the interface
var _ storage.ProfileStore = (*Storage)(nil)

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.usernameIndex[profile.Username]; ok && existing != profile.ID {
		return model.ErrUsernameTaken
	}
	s.profiles[profile.ID] = clone(profile)
	s.usernameIndex[profile.Username] = profile.ID
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return clone(profile), nil
}

func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	profile, ok := s.profiles[id]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	return clone(profile), nil
}

// Checkpoint operations

func (s *Storage) UpdatePosition(ctx context.Context, id model.ProfileID, pos model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	if !ok {
		return model.ErrProfileNotFound
	}
	p := pos
	profile.LastPosition = &p
	profile.UpdatedAt = time.Now()
	return nil
}

func (s *Storage) UpdateAppearance(ctx context.Context, id model.ProfileID, appearance model.Appearance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[id]
	if !ok {
		return model.ErrProfileNotFound
	}
	profile.Appearance = appearance
	profile.UpdatedAt = time.Now()
	return nil
}

func clone(p *model.Profile) *model.Profile {
	c := *p
	if p.LastPosition != nil {
		pos := *p.LastPosition
		c.LastPosition = &pos
	}
	return &c
}
