package economy

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/model"
)

func (s *EconomySuite) TestCardsBuyPackDrawsWeightedRarities() {
	s.random.QueueIntn(0, 0, 75, 1, 96, 1) // slime, metroid, triforce

	result, err := s.attempt(model.GameCards, "buyPack", map[string]string{"pack": "basic"})
	s.Require().NoError(err)
	s.Equal(int64(900), result.Coins)

	outcome := result.Outcome.(*CardsOutcome)
	s.Require().Len(outcome.Drawn, 3)
	s.Equal("slime", outcome.Drawn[0].ID)
	s.Equal("metroid", outcome.Drawn[1].ID)
	s.Equal("triforce", outcome.Drawn[2].ID)

	u, _ := s.ledger.Get("alice")
	s.Equal(1, u.Cards["slime"])
	s.Equal(1, u.Cards["metroid"])
	s.Equal(1, u.Cards["triforce"])
}

func (s *EconomySuite) TestCardsUnknownPack() {
	_, err := s.attempt(model.GameCards, "buyPack", map[string]string{"pack": "mythic"})
	s.ErrorIs(err, model.ErrInvalidStake)
}

func (s *EconomySuite) TestCardsFreeClaimHasRollingCooldown() {
	_, err := s.attempt(model.GameCards, "claimFree", nil)
	s.Require().NoError(err)

	u, _ := s.ledger.Get("alice")
	s.Require().NotNil(u.LastFreeCardClaimAt)
	s.Equal(s.clock.Now(), *u.LastFreeCardClaimAt)
	s.Equal(1, u.Cards["slime"])

	result, err := s.attempt(model.GameCards, "claimFree", nil)
	s.ErrorIs(err, model.ErrOnCooldown)
	s.Equal(model.ReasonOnCooldown, result.Reason)

	s.clock.Advance(24*time.Hour - time.Second)
	_, err = s.attempt(model.GameCards, "claimFree", nil)
	s.ErrorIs(err, model.ErrOnCooldown)

	s.clock.Advance(time.Second)
	_, err = s.attempt(model.GameCards, "claimFree", nil)
	s.NoError(err)

	u, _ = s.ledger.Get("alice")
	s.Equal(2, u.Cards["slime"])
}

func (s *EconomySuite) TestCardsConcurrentFreeClaimsApplyOnce() {
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Attempt(s.ctx, "alice", model.GameCards, "claimFree", json.RawMessage(`{}`))
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
				return
			}
			s.True(errors.Is(err, model.ErrOnCooldown) || errors.Is(err, model.ErrConcurrentRequest), err.Error())
		}()
	}
	wg.Wait()

	s.Equal(1, applied)
	u, _ := s.ledger.Get("alice")
	total := 0
	for _, n := range u.Cards {
		total += n
	}
	s.Equal(1, total)
}

func (s *EconomySuite) TestCardsSellRequiresDuplicate() {
	_, err := s.ledger.Update("alice", func(u *model.User) error {
		u.Cards["slime"] = 1
		u.Cards["chocobo"] = 2
		return nil
	})
	s.Require().NoError(err)

	_, err = s.attempt(model.GameCards, "sell", map[string]string{"cardId": "slime"})
	s.ErrorIs(err, model.ErrInvalidAction)

	result, err := s.attempt(model.GameCards, "sell", map[string]string{"cardId": "chocobo"})
	s.Require().NoError(err)
	s.Equal(int64(50), result.Payout)
	s.Equal(int64(1050), result.Coins)

	u, _ := s.ledger.Get("alice")
	s.Equal(1, u.Cards["chocobo"])

	_, err = s.attempt(model.GameCards, "sell", map[string]string{"cardId": "chocobo"})
	s.ErrorIs(err, model.ErrInvalidAction)
}

func (s *EconomySuite) TestCardsSellUnknownCard() {
	_, err := s.attempt(model.GameCards, "sell", map[string]string{"cardId": "bfg"})
	s.ErrorIs(err, model.ErrInvalidAction)
}
