package economy

import (
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

// FishEntity is one spawned catchable thing in the pond
type FishEntity struct {
	ID     int    `json:"id"`
	Kind   string `json:"kind"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Radius int    `json:"radius"`
}

// FishingOutcome is the reply to cast and reel
type FishingOutcome struct {
	Entities   []FishEntity `json:"entities,omitempty"`
	Caught     *FishEntity  `json:"caught,omitempty"`
	Multiplier int64        `json:"multiplier"`
	Expired    bool         `json:"expired,omitempty"`
}

type fishingCast struct {
	bet      int64
	entities []FishEntity
	castAt   time.Time
}

// Fishing is a cast-then-reel game. Entities are spawned and kept server
// side; the client only reports where it reeled in.
type Fishing struct {
	cfg     FishingConfig
	weights []int

	mu    sync.Mutex
	casts map[string]*fishingCast
}

// NewFishing creates the fishing game
func NewFishing(cfg FishingConfig) *Fishing {
	weights := make([]int, len(cfg.Entities))
	for i, e := range cfg.Entities {
		weights[i] = e.Weight
	}
	return &Fishing{cfg: cfg, weights: weights, casts: make(map[string]*fishingCast)}
}

func (g *Fishing) Name() model.GameName { return model.GameFishing }

type reelParams struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

func (g *Fishing) Prepare(req Request, user *model.User) (int64, error) {
	g.mu.Lock()
	cast, live := g.casts[req.Username]
	g.mu.Unlock()

	switch req.Action {
	case "cast":
		// An abandoned line past its reel window is replaced
		if live && !g.expired(cast, req.Now) {
			return 0, model.ErrSessionInProgress
		}
		return parseBet(req.Params, g.cfg.AllowedBets)
	case "reel":
		if !live {
			return 0, model.ErrNoActiveSession
		}
		_, _, err := g.parseHook(req)
		return 0, err
	default:
		return 0, model.ErrInvalidAction
	}
}

func (g *Fishing) parseHook(req Request) (int, int, error) {
	var p reelParams
	if err := decodeParams(req.Params, &p); err != nil {
		return 0, 0, err
	}
	if p.X == nil || p.Y == nil {
		return 0, 0, model.ErrInvalidAction
	}
	x, y := *p.X, *p.Y
	if x < 0 || x > g.cfg.PondWidth || y < 0 || y > g.cfg.PondHeight {
		return 0, 0, model.ErrInvalidAction
	}
	return x, y, nil
}

func (g *Fishing) Resolve(req Request, user *model.User, rng random.Random) (Settlement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.Action {
	case "cast":
		bet, err := parseBet(req.Params, g.cfg.AllowedBets)
		if err != nil {
			return Settlement{}, err
		}
		entities := make([]FishEntity, g.cfg.Spawn)
		for i := range entities {
			k := random.Weighted(rng, g.weights)
			if k < 0 {
				return Settlement{}, errEmptyTable
			}
			kind := g.cfg.Entities[k]
			entities[i] = FishEntity{
				ID:     i,
				Kind:   kind.Name,
				X:      rng.Intn(g.cfg.PondWidth + 1),
				Y:      rng.Intn(g.cfg.PondHeight + 1),
				Radius: kind.Radius,
			}
		}
		g.casts[req.Username] = &fishingCast{bet: bet, entities: entities, castAt: req.Now}
		return Settlement{Outcome: FishingOutcome{Entities: entities}}, nil

	case "reel":
		cast, ok := g.casts[req.Username]
		if !ok {
			return Settlement{}, model.ErrNoActiveSession
		}
		x, y, err := g.parseHook(req)
		if err != nil {
			return Settlement{}, err
		}
		delete(g.casts, req.Username)

		if g.expired(cast, req.Now) {
			return Settlement{Outcome: FishingOutcome{Expired: true}}, nil
		}

		caught := g.collide(cast.entities, x, y)
		if caught == nil {
			return Settlement{Outcome: FishingOutcome{}}, nil
		}
		mult := g.kind(caught.Kind).Multiplier
		payout := percentOf(cast.bet, mult)
		return Settlement{
			Payout:  payout,
			Outcome: FishingOutcome{Caught: caught, Multiplier: mult},
			Win:     payout > cast.bet,
		}, nil
	}
	return Settlement{}, model.ErrInvalidAction
}

// collide returns the entity nearest the hook whose radius, widened by the
// hook radius, contains it
func (g *Fishing) collide(entities []FishEntity, x, y int) *FishEntity {
	var (
		best     *FishEntity
		bestDist = -1
	)
	for i := range entities {
		e := &entities[i]
		dx, dy := e.X-x, e.Y-y
		dist := dx*dx + dy*dy
		reach := e.Radius + g.cfg.HookRadius
		if dist > reach*reach {
			continue
		}
		if bestDist < 0 || dist < bestDist {
			best, bestDist = e, dist
		}
	}
	if best == nil {
		return nil
	}
	caught := *best
	return &caught
}

func (g *Fishing) kind(name string) FishKind {
	for _, k := range g.cfg.Entities {
		if k.Name == name {
			return k
		}
	}
	return FishKind{}
}

func (g *Fishing) expired(cast *fishingCast, now time.Time) bool {
	return now.Sub(cast.castAt) > time.Duration(g.cfg.ReelWindow)
}

// Sweep drops casts whose reel window has passed and returns how many
func (g *Fishing) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for username, cast := range g.casts {
		if g.expired(cast, now) {
			delete(g.casts, username)
			n++
		}
	}
	return n
}

// Live reports whether the user has a line in the water
func (g *Fishing) Live(username string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.casts[username]
	return ok
}
