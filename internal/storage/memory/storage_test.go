package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage/storagetest"
)

type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.storage = New()
	s.Storage = s.storage
	s.Ctx = context.Background()
}

func (s *StorageSuite) TestSavedUserIsIsolatedFromCaller() {
	user := model.NewUser("alice", "hash", time.Now())
	s.Require().NoError(s.storage.SaveUser(s.Ctx, user))

	user.Coins = 1
	user.Cards["pixel-cat"] = 9

	got, err := s.storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(model.StartingCoins, got.Coins)
	s.Zero(got.Cards["pixel-cat"])
}
