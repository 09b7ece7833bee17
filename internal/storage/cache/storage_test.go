package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
	"github.com/mcoot/tileworld/internal/storage/memory"
	"github.com/mcoot/tileworld/internal/storage/storagetest"
)

// countingStore records how many reads reach the backing store
type countingStore struct {
	storage.ProfileStore
	reads atomic.Int32
}

func (c *countingStore) GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	c.reads.Add(1)
	return c.ProfileStore.GetProfile(ctx, id)
}

// heldStore completes the first GetProfile read against the backing store
// and then holds the result until release is closed
type heldStore struct {
	storage.ProfileStore
	fetched chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *heldStore) GetProfile(ctx context.Context, id model.ProfileID) (*model.Profile, error) {
	profile, err := h.ProfileStore.GetProfile(ctx, id)
	h.once.Do(func() {
		close(h.fetched)
		<-h.release
	})
	return profile, err
}

type StorageSuite struct {
	storagetest.ProfileStoreSuite
	backing *countingStore
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.backing = &countingStore{ProfileStore: memory.New()}
	var err error
	s.storage, err = New(s.backing, Config{MaxCost: 100})
	s.Require().NoError(err)
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	s.NoError(s.storage.Close())
}

func (s *StorageSuite) TestRepeatedReadsHitCache() {
	s.Require().NoError(s.storage.SaveProfile(s.Ctx, storagetest.NewProfile("p-1", "alice")))

	_, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.storage.Wait()

	for i := 0; i < 3; i++ {
		profile, err := s.storage.GetProfile(s.Ctx, "p-1")
		s.Require().NoError(err)
		s.Equal("alice", profile.Username)
	}
	s.Equal(int32(1), s.backing.reads.Load())
}

func (s *StorageSuite) TestUpdateInvalidatesCachedProfile() {
	s.Require().NoError(s.storage.SaveProfile(s.Ctx, storagetest.NewProfile("p-1", "alice")))
	_, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.storage.Wait()

	s.Require().NoError(s.storage.UpdatePosition(s.Ctx, "p-1", model.Position{X: 10, Y: 20}))
	s.storage.Wait()

	profile, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Require().NotNil(profile.LastPosition)
	s.Equal(model.Position{X: 10, Y: 20}, *profile.LastPosition)
	s.Equal(int32(2), s.backing.reads.Load())
}

func (s *StorageSuite) TestMissesAreNotCached() {
	_, err := s.storage.GetProfile(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrProfileNotFound)
	_, err = s.storage.GetProfile(s.Ctx, "ghost")
	s.ErrorIs(err, model.ErrProfileNotFound)
	s.Equal(int32(2), s.backing.reads.Load())
}

func (s *StorageSuite) TestCachedProfileIsACopy() {
	s.Require().NoError(s.storage.SaveProfile(s.Ctx, storagetest.NewProfile("p-1", "alice")))
	first, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.storage.Wait()
	first.DisplayName = "mutated"

	second, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.NotEqual("mutated", second.DisplayName)
}

func (s *StorageSuite) TestReadOverlappingWriteIsNotCached() {
	backing := &heldStore{
		ProfileStore: memory.New(),
		fetched:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	store, err := New(backing, Config{MaxCost: 100})
	s.Require().NoError(err)
	defer store.Close()

	profile := storagetest.NewProfile("p-1", "alice")
	profile.LastPosition = &model.Position{X: 1, Y: 1}
	s.Require().NoError(store.SaveProfile(s.Ctx, profile))

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		stale, err := store.GetProfile(s.Ctx, "p-1")
		s.NoError(err)
		s.Equal(model.Position{X: 1, Y: 1}, *stale.LastPosition)
	}()

	<-backing.fetched
	s.Require().NoError(store.UpdatePosition(s.Ctx, "p-1", model.Position{X: 150, Y: 80}))
	close(backing.release)
	<-readDone
	store.Wait()

	got, err := store.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Require().NotNil(got.LastPosition)
	s.Equal(model.Position{X: 150, Y: 80}, *got.LastPosition)
}
