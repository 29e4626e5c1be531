package economy

import (
	"time"

	"github.com/sqrrr/gamehub/internal/model"
)

func (s *EconomySuite) stackingGame() *Stacking {
	return s.service.games[model.GameStacking].(*Stacking)
}

func (s *EconomySuite) TestStackingStartDebitsCost() {
	result, err := s.attempt(model.GameStacking, "start", nil)
	s.Require().NoError(err)
	s.Equal(int64(900), result.Coins)
	s.Equal(int64(100), result.Stake)

	outcome := result.Outcome.(StackingOutcome)
	s.True(outcome.Live)
	s.Equal([]StackRow{{Left: 30, Width: 40}}, outcome.Rows)
	s.True(s.stackingGame().Live("alice"))
}

func (s *EconomySuite) TestStackingSecondStartIsRejected() {
	s.setCoins(150, 0)

	first, err := s.attempt(model.GameStacking, "start", nil)
	s.Require().NoError(err)
	s.Equal(int64(50), first.Coins)

	second, err := s.attempt(model.GameStacking, "start", nil)
	s.ErrorIs(err, model.ErrSessionInProgress)
	s.False(second.Applied)
	s.Equal(int64(50), second.Coins)
	s.Equal(int64(50), s.coins())
}

func (s *EconomySuite) TestStackingPerfectDropsThenCashout() {
	_, err := s.attempt(model.GameStacking, "start", nil)
	s.Require().NoError(err)

	// At each row's speed these delays put the block exactly over the stack
	for _, wait := range []time.Duration{750 * time.Millisecond, 667 * time.Millisecond, 600 * time.Millisecond} {
		s.clock.Advance(wait)
		result, err := s.attempt(model.GameStacking, "drop", nil)
		s.Require().NoError(err)
		outcome := result.Outcome.(StackingOutcome)
		s.True(outcome.Live)
		s.Equal(30, outcome.Position)
	}

	result, err := s.attempt(model.GameStacking, "cashout", nil)
	s.Require().NoError(err)
	outcome := result.Outcome.(StackingOutcome)
	s.Equal(3, outcome.Height)
	s.True(outcome.CashedOut)
	s.Equal(int64(50), result.Payout)
	s.Equal(int64(950), result.Coins)
	s.False(s.stackingGame().Live("alice"))
}

func (s *EconomySuite) TestStackingClientPositionIsClampedToServerPosition() {
	_, _ = s.attempt(model.GameStacking, "start", nil)

	// The block is at 0 right after the row starts; a claim of 30 is pulled back to the tolerance
	result, err := s.attempt(model.GameStacking, "drop", map[string]int{"position": 30})
	s.Require().NoError(err)

	outcome := result.Outcome.(StackingOutcome)
	s.Equal(8, outcome.Position)
	s.Equal(StackRow{Left: 30, Width: 18}, outcome.Rows[1])
}

func (s *EconomySuite) TestStackingMissEndsRunWithoutPayout() {
	_, _ = s.attempt(model.GameStacking, "start", nil)

	_, err := s.attempt(model.GameStacking, "drop", nil) // overlaps 30..40
	s.Require().NoError(err)

	result, err := s.attempt(model.GameStacking, "drop", nil) // 0..10 misses 30..40
	s.Require().NoError(err)
	outcome := result.Outcome.(StackingOutcome)
	s.False(outcome.Live)
	s.False(outcome.CashedOut)
	s.Zero(result.Payout)
	s.Equal(int64(900), result.Coins)

	_, err = s.attempt(model.GameStacking, "cashout", nil)
	s.ErrorIs(err, model.ErrNoActiveSession)
}

func (s *EconomySuite) TestStackingLowCashoutPaysNothing() {
	_, _ = s.attempt(model.GameStacking, "start", nil)
	s.clock.Advance(750 * time.Millisecond)
	_, _ = s.attempt(model.GameStacking, "drop", nil)

	result, err := s.attempt(model.GameStacking, "cashout", nil)
	s.Require().NoError(err)
	s.Zero(result.Payout)
	s.Equal(int64(900), result.Coins)
}

func (s *EconomySuite) TestStackingMaxHeightCashesOutAutomatically() {
	s.cfg.Stacking.MaxHeight = 3
	s.build()

	_, _ = s.attempt(model.GameStacking, "start", nil)
	var last StackingOutcome
	var payout int64
	for _, wait := range []time.Duration{750 * time.Millisecond, 667 * time.Millisecond, 600 * time.Millisecond} {
		s.clock.Advance(wait)
		result, err := s.attempt(model.GameStacking, "drop", nil)
		s.Require().NoError(err)
		last = result.Outcome.(StackingOutcome)
		payout = result.Payout
	}

	s.True(last.CashedOut)
	s.False(last.Live)
	s.Equal(int64(50), payout)
}

func (s *EconomySuite) TestStackingDropWithoutRun() {
	_, err := s.attempt(model.GameStacking, "drop", nil)
	s.ErrorIs(err, model.ErrNoActiveSession)
}

func (s *EconomySuite) TestStackingAbandonedRunIsForfeited() {
	_, err := s.attempt(model.GameStacking, "start", nil)
	s.Require().NoError(err)
	s.clock.Advance(5*time.Minute + time.Second)

	_, err = s.attempt(model.GameStacking, "cashout", nil)
	s.ErrorIs(err, model.ErrNoActiveSession)

	result, err := s.attempt(model.GameStacking, "start", nil)
	s.Require().NoError(err)
	s.Equal(int64(800), result.Coins)
	s.True(s.stackingGame().Live("alice"))
}

func (s *EconomySuite) TestStackingSweepDropsIdleRuns() {
	_, err := s.attempt(model.GameStacking, "start", nil)
	s.Require().NoError(err)

	s.clock.Advance(time.Minute)
	s.Zero(s.service.Sweep())
	s.True(s.stackingGame().Live("alice"))

	s.clock.Advance(5 * time.Minute)
	s.Equal(1, s.service.Sweep())
	s.False(s.stackingGame().Live("alice"))
}
