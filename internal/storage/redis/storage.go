package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// maxTxRetries bounds optimistic-lock retries for checkpoint updates
const maxTxRetries = 5

// Storage is a Redis-backed implementation of the profile store
type Storage struct {
	client *redis.Client
	keys   keyspace
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().DialTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		keys:   cfg.keyspace(),
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.ProfileStore = (*Storage)(nil)

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}

	// Claim the username first; SETNX keeps usernames unique across writers
	claimed, err := s.client.SetNX(ctx, s.keys.username(profile.Username), string(profile.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		owner, err := s.client.Get(ctx, s.keys.username(profile.Username)).Result()
		if err != nil {
			return err
		}
		if model.ProfileID(owner) != profile.ID {
			return model.ErrUsernameTaken
		}
	}

	return s.client.Set(ctx, s.keys.profile(profile.ID), data, 0).Err()
}

func (s *Storage) GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	data, err := s.client.Get(ctx, s.keys.profile(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	var profile model.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *Storage) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	// Look up profile ID from username index
	id, err := s.client.Get(ctx, s.keys.username(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, err
	}

	return s.GetProfile(ctx, model.ProfileID(id))
}

// Checkpoint operations

func (s *Storage) UpdatePosition(ctx context.Context, id model.ProfileID, pos model.Position) error {
	return s.modify(ctx, id, func(p *model.Profile) {
		p.LastPosition = &pos
	})
}

func (s *Storage) UpdateAppearance(ctx context.Context, id model.ProfileID, appearance model.Appearance) error {
	return s.modify(ctx, id, func(p *model.Profile) {
		p.Appearance = appearance
	})
}

// modify applies fn to the stored profile inside a WATCH transaction
func (s *Storage) modify(ctx context.Context, id model.ProfileID, fn func(*model.Profile)) error {
	key := s.keys.profile(id)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrProfileNotFound
			}
			return err
		}

		var profile model.Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			return err
		}
		fn(&profile)
		profile.UpdatedAt = time.Now()

		updated, err := json.Marshal(&profile)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}
