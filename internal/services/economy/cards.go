package economy

import (
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

// CardsOutcome lists the cards drawn or sold
type CardsOutcome struct {
	Drawn      []Card     `json:"drawn,omitempty"`
	Sold       *Card      `json:"sold,omitempty"`
	NextFreeAt *time.Time `json:"nextFreeAt,omitempty"`
}

// Cards is the collectible meta-game: buy packs, claim a free card on a
// rolling cooldown, sell duplicates
type Cards struct {
	cfg      CardsConfig
	weights  []int
	byRarity map[string][]Card
	byID     map[string]Card
}

// NewCards creates the cards game
func NewCards(cfg CardsConfig) *Cards {
	g := &Cards{
		cfg:      cfg,
		weights:  make([]int, len(cfg.Rarities)),
		byRarity: make(map[string][]Card),
		byID:     make(map[string]Card),
	}
	for i, r := range cfg.Rarities {
		g.weights[i] = r.Weight
	}
	for _, c := range cfg.Catalog {
		g.byRarity[c.Rarity] = append(g.byRarity[c.Rarity], c)
		g.byID[c.ID] = c
	}
	// A rarity with no cards can never be drawn
	for i, r := range cfg.Rarities {
		if len(g.byRarity[r.Name]) == 0 {
			g.weights[i] = 0
		}
	}
	return g
}

func (g *Cards) Name() model.GameName { return model.GameCards }

type packParams struct {
	Pack string `json:"pack"`
}

type sellParams struct {
	CardID string `json:"cardId"`
}

func (g *Cards) Prepare(req Request, user *model.User) (int64, error) {
	switch req.Action {
	case "buyPack":
		var p packParams
		if err := decodeParams(req.Params, &p); err != nil {
			return 0, err
		}
		pack, ok := g.cfg.Packs[p.Pack]
		if !ok {
			return 0, model.ErrInvalidStake
		}
		return pack.Price, nil
	case "claimFree":
		if !g.freeAvailable(user, req.Now) {
			return 0, model.ErrOnCooldown
		}
		return 0, nil
	case "sell":
		var p sellParams
		if err := decodeParams(req.Params, &p); err != nil {
			return 0, err
		}
		if _, ok := g.byID[p.CardID]; !ok || user.Cards[p.CardID] < 2 {
			return 0, model.ErrInvalidAction
		}
		return 0, nil
	default:
		return 0, model.ErrInvalidAction
	}
}

func (g *Cards) Resolve(req Request, user *model.User, rng random.Random) (Settlement, error) {
	switch req.Action {
	case "buyPack":
		var p packParams
		_ = decodeParams(req.Params, &p)
		drawn, err := g.draw(rng, g.cfg.Packs[p.Pack].Size)
		if err != nil {
			return Settlement{}, err
		}
		return Settlement{
			Outcome: &CardsOutcome{Drawn: drawn},
			Apply:   g.addCards(drawn),
		}, nil

	case "claimFree":
		drawn, err := g.draw(rng, 1)
		if err != nil {
			return Settlement{}, err
		}
		now := req.Now
		add := g.addCards(drawn)
		next := now.Add(time.Duration(g.cfg.FreeCooldown))
		return Settlement{
			Outcome: &CardsOutcome{Drawn: drawn, NextFreeAt: &next},
			Apply: func(u *model.User) error {
				// Checked again inside the commit so two claims can never both land
				if !g.freeAvailable(u, now) {
					return model.ErrOnCooldown
				}
				u.LastFreeCardClaimAt = &now
				return add(u)
			},
		}, nil

	case "sell":
		var p sellParams
		_ = decodeParams(req.Params, &p)
		card := g.byID[p.CardID]
		rarity := g.cfg.rarity(card.Rarity)
		return Settlement{
			Payout:  rarity.SellPrice,
			Outcome: &CardsOutcome{Sold: &card},
			Apply: func(u *model.User) error {
				if u.Cards[card.ID] < 2 {
					return model.ErrInvalidAction
				}
				u.Cards[card.ID]--
				return nil
			},
		}, nil
	}
	return Settlement{}, model.ErrInvalidAction
}

func (g *Cards) freeAvailable(u *model.User, now time.Time) bool {
	if u.LastFreeCardClaimAt == nil {
		return true
	}
	return !now.Before(u.LastFreeCardClaimAt.Add(time.Duration(g.cfg.FreeCooldown)))
}

func (g *Cards) draw(rng random.Random, n int) ([]Card, error) {
	drawn := make([]Card, 0, n)
	for i := 0; i < n; i++ {
		r := random.Weighted(rng, g.weights)
		if r < 0 {
			return nil, errEmptyTable
		}
		pool := g.byRarity[g.cfg.Rarities[r].Name]
		if len(pool) == 0 {
			return nil, errEmptyTable
		}
		drawn = append(drawn, pool[rng.Intn(len(pool))])
	}
	return drawn, nil
}

func (g *Cards) addCards(drawn []Card) func(u *model.User) error {
	return func(u *model.User) error {
		for _, c := range drawn {
			u.Cards[c.ID]++
		}
		return nil
	}
}
