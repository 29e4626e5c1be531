package round

import (
	"errors"
	"time"
)

// Config holds the tunables of the round state machine
type Config struct {
	// RoundDuration applies when a content item has no duration of its own
	RoundDuration  time.Duration
	ExtendDuration time.Duration

	// ExtendQuorumRatio is the share of connected players whose votes extend a round
	ExtendQuorumRatio float64

	// CloseThreshold is the similarity at which a wrong guess counts as close
	CloseThreshold float64

	// PointsPerCategory decays linearly over the round down to MinPoints
	PointsPerCategory int
	MinPoints         int

	SuperSonicWindow time.Duration
	SuperSonicBonus  int

	HintCost             int
	HintPointsPerCorrect int

	RecentContentWindow int

	AutoplayDelay         time.Duration
	MinPlayersToAutostart int

	MaxNameLength int
}

// DefaultConfig returns the default round settings
func DefaultConfig() Config {
	return Config{
		RoundDuration:         30 * time.Second,
		ExtendDuration:        15 * time.Second,
		ExtendQuorumRatio:     0.5,
		CloseThreshold:        0.8,
		PointsPerCategory:     100,
		MinPoints:             10,
		SuperSonicWindow:      5 * time.Second,
		SuperSonicBonus:       50,
		HintCost:              3,
		HintPointsPerCorrect:  1,
		RecentContentWindow:   10,
		AutoplayDelay:         5 * time.Second,
		MinPlayersToAutostart: 1,
		MaxNameLength:         24,
	}
}

// Validate reports the first inconsistent setting
func (c Config) Validate() error {
	switch {
	case c.RoundDuration <= 0:
		return errors.New("round duration must be positive")
	case c.ExtendDuration <= 0:
		return errors.New("extend duration must be positive")
	case c.ExtendQuorumRatio <= 0 || c.ExtendQuorumRatio > 1:
		return errors.New("extend quorum ratio must be in (0, 1]")
	case c.CloseThreshold <= 0 || c.CloseThreshold > 1:
		return errors.New("close threshold must be in (0, 1]")
	case c.MinPoints < 0 || c.MinPoints > c.PointsPerCategory:
		return errors.New("min points must be between 0 and points per category")
	case c.HintCost <= 0:
		return errors.New("hint cost must be positive")
	case c.AutoplayDelay <= 0:
		return errors.New("autoplay delay must be positive")
	case c.MaxNameLength <= 0:
		return errors.New("max name length must be positive")
	}
	return nil
}
