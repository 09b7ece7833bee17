// Package storagetest holds the behaviour every ProfileStore backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/tileworld/internal/model"
	"github.com/mcoot/tileworld/internal/storage"
)

// ProfileStoreSuite runs the common profile store contract.
// Backends embed it and set Store in their own SetupTest.
type ProfileStoreSuite struct {
	suite.Suite
	Store storage.ProfileStore
	Ctx   context.Context
}

func NewProfile(id model.ProfileID, username string) *model.Profile {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return &model.Profile{
		ID:           id,
		Username:     username,
		DisplayName:  "Display " + username,
		PasswordHash: "$2a$10$hash",
		Appearance:   model.DefaultAppearance(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *ProfileStoreSuite) TestSaveAndGetProfile() {
	profile := NewProfile("p-1", "alice")
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, profile))

	retrieved, err := s.Store.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Equal(profile.ID, retrieved.ID)
	s.Equal("alice", retrieved.Username)
	s.Equal(profile.DisplayName, retrieved.DisplayName)
	s.Equal(model.NoHat, retrieved.Appearance.HatStyle)
	s.Nil(retrieved.LastPosition)
}

func (s *ProfileStoreSuite) TestGetProfileNotFound() {
	_, err := s.Store.GetProfile(s.Ctx, "nonexistent")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *ProfileStoreSuite) TestGetProfileByUsername() {
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, NewProfile("p-1", "alice")))

	retrieved, err := s.Store.GetProfileByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.ProfileID("p-1"), retrieved.ID)
}

func (s *ProfileStoreSuite) TestGetProfileByUsernameNotFound() {
	_, err := s.Store.GetProfileByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *ProfileStoreSuite) TestSaveProfileRejectsTakenUsername() {
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, NewProfile("p-1", "alice")))

	err := s.Store.SaveProfile(s.Ctx, NewProfile("p-2", "alice"))
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ProfileStoreSuite) TestSaveProfileOverwritesSameID() {
	profile := NewProfile("p-1", "alice")
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, profile))

	profile.DisplayName = "Alice Renamed"
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, profile))

	retrieved, err := s.Store.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Equal("Alice Renamed", retrieved.DisplayName)
}

func (s *ProfileStoreSuite) TestUpdatePosition() {
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, NewProfile("p-1", "alice")))

	err := s.Store.UpdatePosition(s.Ctx, "p-1", model.Position{X: 120, Y: 80})
	s.Require().NoError(err)

	retrieved, err := s.Store.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Require().NotNil(retrieved.LastPosition)
	s.Equal(model.Position{X: 120, Y: 80}, *retrieved.LastPosition)
}

func (s *ProfileStoreSuite) TestUpdatePositionLastWriteWins() {
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, NewProfile("p-1", "alice")))

	s.Require().NoError(s.Store.UpdatePosition(s.Ctx, "p-1", model.Position{X: 1, Y: 1}))
	s.Require().NoError(s.Store.UpdatePosition(s.Ctx, "p-1", model.Position{X: 2, Y: 2}))

	retrieved, err := s.Store.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Equal(model.Position{X: 2, Y: 2}, *retrieved.LastPosition)
}

func (s *ProfileStoreSuite) TestUpdatePositionUnknownProfile() {
	err := s.Store.UpdatePosition(s.Ctx, "nonexistent", model.Position{X: 1, Y: 1})
	s.ErrorIs(err, model.ErrProfileNotFound)
}

func (s *ProfileStoreSuite) TestUpdateAppearance() {
	s.Require().NoError(s.Store.SaveProfile(s.Ctx, NewProfile("p-1", "alice")))

	appearance := model.Appearance{SkinColor: 3, HairStyle: 1, HairColor: 2, ShirtColor: 5, PantsColor: 1, HatStyle: 2}
	s.Require().NoError(s.Store.UpdateAppearance(s.Ctx, "p-1", appearance))

	retrieved, err := s.Store.GetProfile(s.Ctx, "p-1")
	s.Require().NoError(err)
	s.Equal(appearance, retrieved.Appearance)
}

func (s *ProfileStoreSuite) TestUpdateAppearanceUnknownProfile() {
	err := s.Store.UpdateAppearance(s.Ctx, "nonexistent", model.DefaultAppearance())
	s.ErrorIs(err, model.ErrProfileNotFound)
}
