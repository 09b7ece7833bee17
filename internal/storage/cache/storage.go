package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// Config controls the read-through profile cache
type Config struct {
	MaxCost int64         // number of profiles kept, each costs 1
	TTL     time.Duration // zero keeps entries until evicted or invalidated
}

// DefaultConfig returns a cache sized for a single small world
func DefaultConfig() Config {
	return Config{
		MaxCost: 10_000,
		TTL:     5 * time.Minute,
	}
}

// Storage caches profile reads in front of another ProfileStore.
// Every write goes to the backing store first and then drops the cached copy.
// A read only fills the cache when no write to the same profile started or
// finished while it was in flight.
type Storage struct {
	next  storage.ProfileStore
	cache *ristretto.Cache
	ttl   time.Duration

	mu   sync.Mutex
	gens map[model.ProfileID]uint64
}

// New wraps next with a ristretto cache
func New(next storage.ProfileStore, cfg Config) (*Storage, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxCost * 10,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
		// cost counts profiles, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile cache: %w", err)
	}
	return &Storage{
		next:  next,
		cache: c,
		ttl:   cfg.TTL,
		gens:  make(map[model.ProfileID]uint64),
	}, nil
}

// Ensure Storage implements the interface
var _ storage.ProfileStore = (*Storage)(nil)

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	return s.write(profile.ID, func() error {
		return s.next.SaveProfile(ctx, profile)
	})
}

func (s *Storage) GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	if v, ok := s.cache.Get(string(id)); ok {
		if p, ok := v.(*model.Profile); ok {
			return clone(p), nil
		}
	}
	gen := s.generation(id)
	profile, err := s.next.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(profile, gen)
	return profile, nil
}

// GetProfileByUsername is not cached; the profile id is unknown until the read returns.
func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	return s.next.GetProfileByUsername(ctx, username)
}

func (s *Storage) UpdatePosition(ctx context.Context, id model.ProfileID, pos model.Position) error {
	return s.write(id, func() error {
		return s.next.UpdatePosition(ctx, id, pos)
	})
}

func (s *Storage) UpdateAppearance(ctx context.Context, id model.ProfileID, appearance model.Appearance) error {
	return s.write(id, func() error {
		return s.next.UpdateAppearance(ctx, id, appearance)
	})
}

// Wait blocks until buffered cache writes have been applied
func (s *Storage) Wait() {
	s.cache.Wait()
}

// Close releases the cache and closes the backing store when it supports it
func (s *Storage) Close() error {
	s.cache.Close()
	if c, ok := s.next.(storage.Closer); ok {
		return c.Close()
	}
	return nil
}

// write bumps the profile's generation on both sides of fn so that any
// read overlapping the write skips the cache fill
func (s *Storage) write(id model.ProfileID, fn func() error) error {
	s.bump(id)
	err := fn()
	s.mu.Lock()
	s.gens[id]++
	s.cache.Del(string(id))
	s.mu.Unlock()
	return err
}

func (s *Storage) bump(id model.ProfileID) {
	s.mu.Lock()
	s.gens[id]++
	s.mu.Unlock()
}

func (s *Storage) generation(id model.ProfileID) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[id]
}

func (s *Storage) put(p *model.Profile, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[p.ID] != gen {
		return
	}
	s.cache.SetWithTTL(string(p.ID), clone(p), 1, s.ttl)
}

func clone(p *model.Profile) *model.Profile {
	c := *p
	if p.LastPosition != nil {
		pos := *p.LastPosition
		c.LastPosition = &pos
	}
	return &c
}
