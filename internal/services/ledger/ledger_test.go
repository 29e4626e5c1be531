package ledger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/dependencies/mocks"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage/memory"
	"github.com/sqrrr/gamehub/internal/testutil"
)

// flakyStorage fails SaveUser while failing is set
type flakyStorage struct {
	*memory.Storage
	failing atomic.Bool
	saves   atomic.Int32
}

func (f *flakyStorage) SaveUser(ctx context.Context, u *model.User) error {
	f.saves.Add(1)
	if f.failing.Load() {
		return errors.New("connection reset")
	}
	return f.Storage.SaveUser(ctx, u)
}

type LedgerSuite struct {
	suite.Suite
	storage *flakyStorage
	clock   *mocks.MockClock
	ledger  *Ledger
	ctx     context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.storage = &flakyStorage{Storage: memory.New()}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ledger = New(s.storage, s.clock, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *LedgerSuite) createUser(name string) {
	s.Require().NoError(s.ledger.Create(s.ctx, model.NewUser(name, "hash", s.clock.Now())))
}

func (s *LedgerSuite) TestCreateAndGet() {
	s.createUser("alice")

	u, err := s.ledger.Get("alice")
	s.Require().NoError(err)
	s.Equal(model.StartingCoins, u.Coins)
	s.Zero(u.Debt)
}

func (s *LedgerSuite) TestCreateDuplicateFails() {
	s.createUser("alice")
	err := s.ledger.Create(s.ctx, model.NewUser("alice", "other", s.clock.Now()))
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *LedgerSuite) TestGetUnknownUser() {
	_, err := s.ledger.Get("nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *LedgerSuite) TestGetReturnsCopy() {
	s.createUser("alice")
	u, _ := s.ledger.Get("alice")
	u.Coins = 1
	u.Cards["x"] = 5

	again, _ := s.ledger.Get("alice")
	s.Equal(model.StartingCoins, again.Coins)
	s.Zero(again.Cards["x"])
}

func (s *LedgerSuite) TestUpdateCommitsOnSuccess() {
	s.createUser("alice")

	u, err := s.ledger.Update("alice", func(u *model.User) error {
		u.Coins -= 100
		return nil
	})
	s.Require().NoError(err)
	s.Equal(int64(900), u.Coins)
	s.Equal(s.clock.Now(), u.UpdatedAt)
}

func (s *LedgerSuite) TestUpdateDiscardsOnError() {
	s.createUser("alice")

	_, err := s.ledger.Update("alice", func(u *model.User) error {
		u.Coins = 0
		u.Cards["x"] = 1
		return model.ErrOnCooldown
	})
	s.ErrorIs(err, model.ErrOnCooldown)

	u, _ := s.ledger.Get("alice")
	s.Equal(model.StartingCoins, u.Coins)
	s.Zero(u.Cards["x"])
}

func (s *LedgerSuite) TestUpdateNeverCommitsNegativeCoins() {
	s.createUser("alice")

	_, err := s.ledger.Update("alice", func(u *model.User) error {
		u.Coins -= 5000
		return nil
	})
	s.ErrorIs(err, model.ErrInsufficientFunds)

	u, _ := s.ledger.Get("alice")
	s.Equal(model.StartingCoins, u.Coins)
}

func (s *LedgerSuite) TestTryAcquireRejectsSecondHolder() {
	release, ok := s.ledger.TryAcquire("alice")
	s.Require().True(ok)

	_, ok = s.ledger.TryAcquire("alice")
	s.False(ok)

	// Other users are unaffected
	releaseBob, ok := s.ledger.TryAcquire("bob")
	s.Require().True(ok)
	releaseBob()

	release()
	release2, ok := s.ledger.TryAcquire("alice")
	s.True(ok)
	release2()
}

func (s *LedgerSuite) TestAcquireWaitsForHolder() {
	release, ok := s.ledger.TryAcquire("alice")
	s.Require().True(ok)

	var acquired atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		unlock := s.ledger.Acquire("alice")
		acquired.Store(true)
		unlock()
	}()

	time.Sleep(20 * time.Millisecond)
	s.False(acquired.Load())

	release()
	<-done
	s.True(acquired.Load())

	// Acquire released the lock again
	release2, ok := s.ledger.TryAcquire("alice")
	s.True(ok)
	release2()
}

func (s *LedgerSuite) TestConcurrentUpdatesAreSerialized() {
	s.createUser("alice")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ledger.Update("alice", func(u *model.User) error {
				u.Coins += 10
				return nil
			})
		}()
	}
	wg.Wait()

	u, _ := s.ledger.Get("alice")
	s.Equal(model.StartingCoins+500, u.Coins)
}

func (s *LedgerSuite) TestFlushPersistsDirtyUsers() {
	s.createUser("alice")
	_, _ = s.ledger.Update("alice", func(u *model.User) error {
		u.Coins = 42
		return nil
	})
	s.Equal(1, s.ledger.Pending())

	s.Require().NoError(s.ledger.Flush(s.ctx))
	s.Zero(s.ledger.Pending())

	stored, err := s.storage.GetUser(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(42), stored.Coins)
}

func (s *LedgerSuite) TestFailedPersistIsRetried() {
	s.createUser("alice")
	s.storage.failing.Store(true)

	s.Error(s.ledger.Flush(s.ctx))
	s.Equal(1, s.ledger.Pending())

	// Memory stays authoritative while storage is down
	u, _ := s.ledger.Get("alice")
	s.Equal(model.StartingCoins, u.Coins)

	s.storage.failing.Store(false)
	s.Require().NoError(s.ledger.Flush(s.ctx))
	s.Zero(s.ledger.Pending())

	_, err := s.storage.GetUser(s.ctx, "alice")
	s.NoError(err)
}

func (s *LedgerSuite) TestRunPersistsInBackground() {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	go s.ledger.Run(ctx)

	s.createUser("alice")

	s.Eventually(func() bool {
		_, err := s.storage.GetUser(s.ctx, "alice")
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func (s *LedgerSuite) TestLoadFromStorage() {
	stored := model.NewUser("carol", "hash", s.clock.Now())
	stored.Coins = 77
	s.Require().NoError(s.storage.Storage.SaveUser(s.ctx, stored))

	s.Require().NoError(s.ledger.Load(s.ctx))

	u, err := s.ledger.Get("carol")
	s.Require().NoError(err)
	s.Equal(int64(77), u.Coins)
}

func (s *LedgerSuite) TestLeaderboardOrdersByNetWorth() {
	for _, name := range []string{"alice", "bob", "carol"} {
		s.createUser(name)
	}
	_, _ = s.ledger.Update("bob", func(u *model.User) error { u.Coins = 3000; return nil })
	_, _ = s.ledger.Update("carol", func(u *model.User) error { u.Coins = 1500; u.Debt = 1000; return nil })

	board := s.ledger.Leaderboard(2)
	s.Require().Len(board, 2)
	s.Equal("bob", board[0].Username)
	s.Equal("alice", board[1].Username)
}
