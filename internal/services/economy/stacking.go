package economy

import (
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

// StackRow is one placed block
type StackRow struct {
	Left  int `json:"left"`
	Width int `json:"width"`
}

// StackingOutcome describes the run after an action
type StackingOutcome struct {
	Rows      []StackRow `json:"rows"`
	Height    int        `json:"height"`
	Speed     int        `json:"speed"`
	Live      bool       `json:"live"`
	CashedOut bool       `json:"cashedOut"`
	Position  int        `json:"position,omitempty"`
}

type stackRun struct {
	rows         []StackRow
	rowStartedAt time.Time
}

func (r *stackRun) top() StackRow { return r.rows[len(r.rows)-1] }

// height counts rows placed on top of the base
func (r *stackRun) height() int { return len(r.rows) - 1 }

// Stacking is the block-stacking game. The server owns the stack and the
// moving block's position; a client drop is accepted only near that position.
type Stacking struct {
	cfg StackingConfig

	mu   sync.Mutex
	runs map[string]*stackRun
}

// NewStacking creates the stacking game
func NewStacking(cfg StackingConfig) *Stacking {
	return &Stacking{cfg: cfg, runs: make(map[string]*stackRun)}
}

func (g *Stacking) Name() model.GameName { return model.GameStacking }

type dropParams struct {
	Position *int `json:"position"`
}

func (g *Stacking) Prepare(req Request, user *model.User) (int64, error) {
	g.mu.Lock()
	run, live := g.runs[req.Username]
	g.mu.Unlock()
	// A run left idle past the timeout is forfeited
	live = live && !g.abandoned(run, req.Now)

	switch req.Action {
	case "start":
		if live {
			return 0, model.ErrSessionInProgress
		}
		return g.cfg.Cost, nil
	case "drop":
		if !live {
			return 0, model.ErrNoActiveSession
		}
		var p dropParams
		if err := decodeParams(req.Params, &p); err != nil {
			return 0, err
		}
		return 0, nil
	case "cashout":
		if !live {
			return 0, model.ErrNoActiveSession
		}
		return 0, nil
	default:
		return 0, model.ErrInvalidAction
	}
}

func (g *Stacking) Resolve(req Request, user *model.User, rng random.Random) (Settlement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch req.Action {
	case "start":
		run := &stackRun{
			rows:         []StackRow{{Left: (g.cfg.FieldWidth - g.cfg.BaseWidth) / 2, Width: g.cfg.BaseWidth}},
			rowStartedAt: req.Now,
		}
		g.runs[req.Username] = run
		return Settlement{Outcome: g.outcome(run, true, false, 0)}, nil

	case "drop":
		run, ok := g.runs[req.Username]
		if !ok || g.abandoned(run, req.Now) {
			delete(g.runs, req.Username)
			return Settlement{}, model.ErrNoActiveSession
		}
		var p dropParams
		_ = decodeParams(req.Params, &p)
		return g.drop(req, run, p.Position), nil

	case "cashout":
		run, ok := g.runs[req.Username]
		delete(g.runs, req.Username)
		if !ok || g.abandoned(run, req.Now) {
			return Settlement{}, model.ErrNoActiveSession
		}
		payout := g.payout(run.height())
		return Settlement{
			Payout:  payout,
			Outcome: g.outcome(run, false, true, 0),
			Win:     payout > g.cfg.Cost,
		}, nil
	}
	return Settlement{}, model.ErrInvalidAction
}

func (g *Stacking) drop(req Request, run *stackRun, claimed *int) Settlement {
	top := run.top()
	width := top.Width
	expected := g.position(run, width, req.Now)

	pos := expected
	if claimed != nil {
		pos = clamp(*claimed, expected-g.cfg.Tolerance, expected+g.cfg.Tolerance)
	}
	pos = clamp(pos, 0, g.cfg.FieldWidth-width)

	left := max(pos, top.Left)
	right := min(pos+width, top.Left+top.Width)
	if right <= left {
		// Missed the stack entirely: the run is over and the stake is lost
		delete(g.runs, req.Username)
		return Settlement{Outcome: g.outcome(run, false, false, pos)}
	}

	run.rows = append(run.rows, StackRow{Left: left, Width: right - left})
	run.rowStartedAt = req.Now

	if run.height() >= g.cfg.MaxHeight {
		delete(g.runs, req.Username)
		payout := g.payout(run.height())
		return Settlement{Payout: payout, Outcome: g.outcome(run, false, true, pos), Win: payout > g.cfg.Cost}
	}
	return Settlement{Outcome: g.outcome(run, true, false, pos)}
}

// position is where the moving block sits at now. It sweeps left to right
// and back at the row's speed, starting at 0 when the row begins.
func (g *Stacking) position(run *stackRun, width int, now time.Time) int {
	span := g.cfg.FieldWidth - width
	if span <= 0 {
		return 0
	}
	elapsedMs := now.Sub(run.rowStartedAt).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	travelled := int(elapsedMs * int64(g.speed(run.height())) / 1000)
	d := travelled % (2 * span)
	if d <= span {
		return d
	}
	return 2*span - d
}

func (g *Stacking) speed(height int) int {
	return g.cfg.BaseSpeed + height*g.cfg.SpeedStep
}

// payout returns the best tier reached for a height
func (g *Stacking) payout(height int) int64 {
	var pct int64
	for _, t := range g.cfg.Tiers {
		if height >= t.Height {
			pct = t.Multiplier
		}
	}
	return percentOf(g.cfg.Cost, pct)
}

func (g *Stacking) outcome(run *stackRun, live, cashedOut bool, pos int) StackingOutcome {
	rows := make([]StackRow, len(run.rows))
	copy(rows, run.rows)
	return StackingOutcome{
		Rows:      rows,
		Height:    run.height(),
		Speed:     g.speed(run.height()),
		Live:      live,
		CashedOut: cashedOut,
		Position:  pos,
	}
}

func (g *Stacking) abandoned(run *stackRun, now time.Time) bool {
	return now.Sub(run.rowStartedAt) > time.Duration(g.cfg.RunTimeout)
}

// Sweep drops runs idle past the timeout and returns how many
func (g *Stacking) Sweep(now time.Time) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for username, run := range g.runs {
		if g.abandoned(run, now) {
			delete(g.runs, username)
			n++
		}
	}
	return n
}

// Live reports whether the user has a run in progress
func (g *Stacking) Live(username string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.runs[username]
	return ok
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
