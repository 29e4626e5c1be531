package economy

import (
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

// SlotsOutcome is the visible result of a spin
type SlotsOutcome struct {
	Reels      []string `json:"reels"`
	Multiplier int64    `json:"multiplier"` // percent of the bet
	Line       string   `json:"line"`       // triple, pair or none
}

// Slots is a weighted-reel slot machine
type Slots struct {
	cfg     SlotsConfig
	weights []int
}

// NewSlots creates the slots game
func NewSlots(cfg SlotsConfig) *Slots {
	weights := make([]int, len(cfg.Symbols))
	for i, sym := range cfg.Symbols {
		weights[i] = sym.Weight
	}
	return &Slots{cfg: cfg, weights: weights}
}

func (g *Slots) Name() model.GameName { return model.GameSlots }

func (g *Slots) Prepare(req Request, user *model.User) (int64, error) {
	if req.Action != "spin" {
		return 0, model.ErrInvalidAction
	}
	return parseBet(req.Params, g.cfg.AllowedBets)
}

func (g *Slots) Resolve(req Request, user *model.User, rng random.Random) (Settlement, error) {
	bet, err := parseBet(req.Params, g.cfg.AllowedBets)
	if err != nil {
		return Settlement{}, err
	}

	idx := make([]int, g.cfg.Reels)
	reels := make([]string, g.cfg.Reels)
	for i := range idx {
		idx[i] = random.Weighted(rng, g.weights)
		if idx[i] < 0 {
			return Settlement{}, errEmptyTable
		}
		reels[i] = g.cfg.Symbols[idx[i]].Name
	}

	outcome := SlotsOutcome{Reels: reels, Line: "none"}
	switch {
	case allEqual(idx):
		outcome.Line = "triple"
		outcome.Multiplier = g.cfg.Symbols[idx[0]].TripleMultiplier
	case idx[0] == idx[1]:
		outcome.Line = "pair"
		outcome.Multiplier = g.cfg.PairMultiplier
	}

	payout := percentOf(bet, outcome.Multiplier)
	return Settlement{Payout: payout, Outcome: outcome, Win: payout > bet}, nil
}

func allEqual(idx []int) bool {
	for _, i := range idx[1:] {
		if i != idx[0] {
			return false
		}
	}
	return true
}
