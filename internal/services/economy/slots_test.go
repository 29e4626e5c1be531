package economy

import (
	"github.com/sqrrr/gamehub/internal/model"
)

func (s *EconomySuite) TestSlotsTriplePaysSymbolMultiplier() {
	s.random.QueueIntn(90, 91, 97) // seven, seven, seven

	result, err := s.attempt(model.GameSlots, "spin", map[string]int{"bet": 10})
	s.Require().NoError(err)
	s.True(result.Applied)
	s.Equal(int64(500), result.Payout)
	s.Equal(int64(1490), result.Coins)

	outcome := result.Outcome.(SlotsOutcome)
	s.Equal([]string{"seven", "seven", "seven"}, outcome.Reels)
	s.Equal("triple", outcome.Line)

	u, _ := s.ledger.Get("alice")
	s.Equal(1, u.Stats.GameHistory["slots"])
}

func (s *EconomySuite) TestSlotsLeadingPairPaysPairMultiplier() {
	s.random.QueueIntn(0, 29, 30) // cherry, cherry, lemon

	result, err := s.attempt(model.GameSlots, "spin", map[string]int{"bet": 10})
	s.Require().NoError(err)
	s.Equal(int64(20), result.Payout)
	s.Equal(int64(1010), result.Coins)
	s.Equal("pair", result.Outcome.(SlotsOutcome).Line)
}

func (s *EconomySuite) TestSlotsLoss() {
	s.losingSpin()

	result, err := s.attempt(model.GameSlots, "spin", map[string]int{"bet": 100})
	s.Require().NoError(err)
	s.Zero(result.Payout)
	s.Equal(int64(900), result.Coins)
	s.Equal("none", result.Outcome.(SlotsOutcome).Line)
}

func (s *EconomySuite) TestSlotsRejectsBetOutsideTable() {
	result, err := s.attempt(model.GameSlots, "spin", map[string]int{"bet": 15})
	s.ErrorIs(err, model.ErrInvalidStake)
	s.Equal(model.ReasonInvalidStake, result.Reason)
	s.Equal(model.StartingCoins, s.coins())

	_, err = s.attempt(model.GameSlots, "spin", nil)
	s.ErrorIs(err, model.ErrInvalidStake)
}

func (s *EconomySuite) TestSlotsRejectsUnknownAction() {
	_, err := s.attempt(model.GameSlots, "pull", map[string]int{"bet": 10})
	s.ErrorIs(err, model.ErrInvalidAction)
}
