package economy

import (
	"time"

	"github.com/sqrrr/gamehub/internal/model"
)

// castGoldfish spawns a single goldfish at (50, 30)
func (s *EconomySuite) castGoldfish() {
	s.cfg.Fishing.Spawn = 1
	s.build()
	s.random.QueueIntn(95, 50, 30)

	result, err := s.attempt(model.GameFishing, "cast", map[string]int{"bet": 10})
	s.Require().NoError(err)
	s.Equal(int64(990), result.Coins)

	outcome := result.Outcome.(FishingOutcome)
	s.Require().Len(outcome.Entities, 1)
	s.Equal(FishEntity{ID: 0, Kind: "goldfish", X: 50, Y: 30, Radius: 2}, outcome.Entities[0])
}

func (s *EconomySuite) TestFishingCatchPaysEntityMultiplier() {
	s.castGoldfish()

	result, err := s.attempt(model.GameFishing, "reel", map[string]int{"x": 52, "y": 31})
	s.Require().NoError(err)
	outcome := result.Outcome.(FishingOutcome)
	s.Require().NotNil(outcome.Caught)
	s.Equal("goldfish", outcome.Caught.Kind)
	s.Equal(int64(100), result.Payout)
	s.Equal(int64(1090), result.Coins)
}

func (s *EconomySuite) TestFishingMissPaysNothing() {
	s.castGoldfish()

	result, err := s.attempt(model.GameFishing, "reel", map[string]int{"x": 0, "y": 0})
	s.Require().NoError(err)
	s.Nil(result.Outcome.(FishingOutcome).Caught)
	s.Zero(result.Payout)
	s.Equal(int64(990), result.Coins)
}

func (s *EconomySuite) TestFishingRejectsHookOutsidePond() {
	s.castGoldfish()

	_, err := s.attempt(model.GameFishing, "reel", map[string]int{"x": 500, "y": 30})
	s.ErrorIs(err, model.ErrInvalidAction)

	_, err = s.attempt(model.GameFishing, "reel", map[string]int{"x": 50})
	s.ErrorIs(err, model.ErrInvalidAction)

	// The line is still in the water
	s.True(s.service.games[model.GameFishing].(*Fishing).Live("alice"))
}

func (s *EconomySuite) TestFishingLateReelCatchesNothing() {
	s.castGoldfish()
	s.clock.Advance(31 * time.Second)

	result, err := s.attempt(model.GameFishing, "reel", map[string]int{"x": 50, "y": 30})
	s.Require().NoError(err)
	s.True(result.Outcome.(FishingOutcome).Expired)
	s.Zero(result.Payout)
}

func (s *EconomySuite) TestFishingOneCastAtATime() {
	s.castGoldfish()

	_, err := s.attempt(model.GameFishing, "cast", map[string]int{"bet": 10})
	s.ErrorIs(err, model.ErrSessionInProgress)
	s.Equal(int64(990), s.coins())
}

func (s *EconomySuite) TestFishingReelWithoutCast() {
	_, err := s.attempt(model.GameFishing, "reel", map[string]int{"x": 1, "y": 1})
	s.ErrorIs(err, model.ErrNoActiveSession)
}

func (s *EconomySuite) TestFishingPicksNearestOverlap() {
	game := NewFishing(DefaultConfig().Fishing)
	entities := []FishEntity{
		{ID: 0, Kind: "boot", X: 10, Y: 10, Radius: 5},
		{ID: 1, Kind: "pike", X: 13, Y: 10, Radius: 3},
	}
	caught := game.collide(entities, 14, 10)
	s.Require().NotNil(caught)
	s.Equal("pike", caught.Kind)

	s.Nil(game.collide(entities, 40, 40))
}

func (s *EconomySuite) TestFishingAbandonedCastIsReplaced() {
	s.castGoldfish()
	s.clock.Advance(31 * time.Second)

	s.random.QueueIntn(95, 10, 10)
	result, err := s.attempt(model.GameFishing, "cast", map[string]int{"bet": 10})
	s.Require().NoError(err)
	s.True(result.Applied)
	s.Equal(int64(980), result.Coins)
	s.Equal(10, result.Outcome.(FishingOutcome).Entities[0].X)
}

func (s *EconomySuite) TestFishingSweepDropsExpiredCasts() {
	s.castGoldfish()
	fishing := s.service.games[model.GameFishing].(*Fishing)

	s.Zero(s.service.Sweep())
	s.True(fishing.Live("alice"))

	s.clock.Advance(31 * time.Second)
	s.Equal(1, s.service.Sweep())
	s.False(fishing.Live("alice"))
}
