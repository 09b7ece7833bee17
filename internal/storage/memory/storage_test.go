package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.ProfileStoreSuite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Store = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestReturnedProfileIsACopy() {
	s.Require().NoError(s.storage.SaveProfile(s.Ctx, storagetest.NewProfile("p-1", "alice")))
	s.Require().NoError(s.storage.UpdatePosition(s.Ctx, "p-1", model.Position{X: 5, Y: 5}))

	first, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	first.DisplayName = "mutated"
	first.LastPosition.X = 999

	second, err := s.storage.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.NotEqual("mutated", second.DisplayName)
	s.Equal(5.0, second.LastPosition.X)
}
