// Package round runs the guessing-round state machine of each lobby.
//
// Every transition happens under the lobby's own lock. Round and autoplay
// timers live in the scheduler under per-lobby names, and each callback
// carries the round number it was armed for so a late timer cannot act on a
// newer round.
package round

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/assets"
	"github.com/sqrrr/gamehub/internal/services/ledger"
	"github.com/sqrrr/gamehub/internal/services/lobby"
	"github.com/sqrrr/gamehub/internal/services/scheduler"
	"github.com/sqrrr/gamehub/internal/services/textmatch"
	"github.com/sqrrr/gamehub/internal/storage"
)

// Broadcaster delivers an event to a set of connections
type Broadcaster interface {
	Send(conns []model.ConnID, event model.Event)
}

// JoinRequest describes a connection entering a lobby
type JoinRequest struct {
	Conn           model.ConnID
	Code           model.LobbyCode // empty joins the shared lobby
	Name           string
	Username       string // empty for guests
	ProfilePicture string
}

// Controller drives rounds for every lobby in the registry
type Controller struct {
	registry  *lobby.Registry
	catalog   *Catalog
	ledger    *ledger.Ledger
	gate      *assets.Gate
	scheduler *scheduler.Scheduler
	storage   storage.Storage
	clock     clock.Clock
	random    random.Random
	out       Broadcaster
	logger    *slog.Logger
	cfg       Config
}

// NewController creates a round Controller
func NewController(
	registry *lobby.Registry,
	catalog *Catalog,
	ledger *ledger.Ledger,
	gate *assets.Gate,
	scheduler *scheduler.Scheduler,
	storage storage.Storage,
	clock clock.Clock,
	random random.Random,
	out Broadcaster,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	return &Controller{
		registry:  registry,
		catalog:   catalog,
		ledger:    ledger,
		gate:      gate,
		scheduler: scheduler,
		storage:   storage,
		clock:     clock,
		random:    random,
		out:       out,
		logger:    logger.With(slog.String("component", "round")),
		cfg:       cfg,
	}
}

func roundTimer(code model.LobbyCode) string    { return "round:" + string(code) }
func autoplayTimer(code model.LobbyCode) string { return "autoplay:" + string(code) }

// Create opens a new lobby and seats the requester in it
func (c *Controller) Create(ctx context.Context, req JoinRequest) (*model.LobbyJoinedPayload, error) {
	room, err := c.registry.Create()
	if err != nil {
		return nil, err
	}
	req.Code = room.Code()
	return c.Join(ctx, req)
}

// Join seats a connection in a lobby and returns its view of the lobby
func (c *Controller) Join(ctx context.Context, req JoinRequest) (*model.LobbyJoinedPayload, error) {
	code := req.Code
	if code == "" {
		code = model.SharedLobbyCode
	}

	player := &model.LobbyPlayer{
		ConnID:         req.Conn,
		Name:           c.displayName(req.Name),
		Username:       req.Username,
		ProfilePicture: req.ProfilePicture,
	}
	room, err := c.registry.Join(code, player)
	if err != nil {
		return nil, err
	}

	var payload *model.LobbyJoinedPayload
	_ = room.Do(func(l *model.Lobby) error {
		players := snapshots(l)
		payload = &model.LobbyJoinedPayload{
			Code:     l.Code,
			ConnID:   req.Conn,
			Players:  players,
			Round:    roundSnapshot(l.Round, c.clock.Now()),
			Autoplay: l.Autoplay,
		}
		c.broadcast(l, model.EventPlayerList, model.PlayerListPayload{Players: players})
		c.maybeScheduleNext(l)
		return nil
	})

	c.logger.Info("player joined",
		slog.String("lobby_code", string(room.Code())),
		slog.String("conn_id", string(req.Conn)),
		slog.String("username", req.Username),
	)
	return payload, nil
}

// Leave removes a connection from a lobby. The round clock keeps running.
func (c *Controller) Leave(ctx context.Context, code model.LobbyCode, conn model.ConnID) error {
	room, err := c.registry.Leave(code, conn)
	if err != nil {
		return err
	}
	if room.Closed() {
		c.scheduler.Cancel(roundTimer(room.Code()))
		c.scheduler.Cancel(autoplayTimer(room.Code()))
		return nil
	}

	var rec *recordCandidate
	_ = room.Do(func(l *model.Lobby) error {
		c.broadcast(l, model.EventPlayerList, model.PlayerListPayload{Players: snapshots(l)})
		if l.Round.State == model.RoundActive && allGuessed(l) {
			rec = c.finish(l)
		}
		return nil
	})
	c.updateRecord(ctx, room.Code(), rec)
	return nil
}

// StartRound starts a round on request. A start while a round is running is
// rejected and changes nothing.
func (c *Controller) StartRound(ctx context.Context, code model.LobbyCode, conn model.ConnID) error {
	room, err := c.registry.Get(code)
	if err != nil {
		return err
	}
	return room.Do(func(l *model.Lobby) error {
		if _, ok := l.Players[conn]; !ok {
			return model.ErrNotInLobby
		}
		if !canStart(l.Round.State) {
			return model.ErrRoundInProgress
		}
		return c.begin(l)
	})
}

// SubmitGuess grades a guess for the round the client believes is running
func (c *Controller) SubmitGuess(ctx context.Context, code model.LobbyCode, conn model.ConnID, guess string, roundNumber int) (*model.GuessResultPayload, error) {
	room, err := c.registry.Get(code)
	if err != nil {
		return nil, err
	}

	var (
		result *model.GuessResultPayload
		rec    *recordCandidate
	)
	err = room.Do(func(l *model.Lobby) error {
		p, ok := l.Players[conn]
		if !ok {
			return model.ErrNotInLobby
		}
		if roundNumber != l.Round.Number {
			return model.ErrStaleRound
		}
		if l.Round.State != model.RoundActive {
			return model.ErrNoActiveRound
		}

		item, err := c.catalog.Get(l.Round.ContentID)
		if err != nil {
			return err
		}

		remaining := 0
		for _, cat := range model.Categories {
			if !p.HasGuessed(cat) {
				remaining++
			}
		}
		if remaining == 0 {
			return model.ErrAlreadyGuessed
		}

		now := c.clock.Now()
		elapsed := now.Sub(l.Round.StartedAt)
		result = &model.GuessResultPayload{RoundNumber: l.Round.Number, Correct: []model.Category{}}
		near := false
		for _, cat := range model.Categories {
			if p.HasGuessed(cat) {
				continue
			}
			switch textmatch.Grade(guess, item.Answers[cat], c.cfg.CloseThreshold) {
			case textmatch.Exact:
				points := c.points(elapsed, l.Round.Duration)
				p.Guessed[cat] = now
				p.Score += points
				p.RoundPoints += points
				p.HintPoints += c.cfg.HintPointsPerCorrect
				if l.Round.FirstCorrectAt == nil {
					first := now
					l.Round.FirstCorrectAt = &first
				}
				result.Correct = append(result.Correct, cat)
				result.Points += points
				c.broadcast(l, model.EventCorrectGuess, model.CorrectGuessPayload{
					Name:      p.Name,
					Category:  cat,
					Points:    points,
					ElapsedMs: elapsed.Milliseconds(),
				})
			case textmatch.Close:
				near = true
			}
		}
		result.HintPoints = p.HintPoints

		if len(result.Correct) == 0 && near {
			result.Close = true
			c.broadcast(l, model.EventCloseGuess, model.CloseGuessPayload{Name: p.Name})
		}

		if len(result.Correct) > 0 && allGuessed(l) {
			rec = c.finish(l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.updateRecord(ctx, room.Code(), rec)
	return result, nil
}

// RequestHint spends hint points to reveal a masked answer for the first
// category the player has not guessed. Allowed once per round.
func (c *Controller) RequestHint(ctx context.Context, code model.LobbyCode, conn model.ConnID) (*model.HintRevealedPayload, error) {
	room, err := c.registry.Get(code)
	if err != nil {
		return nil, err
	}

	var hint *model.HintRevealedPayload
	err = room.Do(func(l *model.Lobby) error {
		p, ok := l.Players[conn]
		if !ok {
			return model.ErrNotInLobby
		}
		if l.Round.State != model.RoundActive {
			return model.ErrNoActiveRound
		}
		if p.UsedHintThisRound || p.HintPoints < c.cfg.HintCost {
			return model.ErrHintUnavailable
		}

		item, err := c.catalog.Get(l.Round.ContentID)
		if err != nil {
			return err
		}
		for _, cat := range model.Categories {
			if p.HasGuessed(cat) {
				continue
			}
			p.HintPoints -= c.cfg.HintCost
			p.UsedHintThisRound = true
			hint = &model.HintRevealedPayload{
				Category:   cat,
				Hint:       textmatch.Mask(item.Canonical(cat)),
				HintPoints: p.HintPoints,
			}
			return nil
		}
		return model.ErrHintUnavailable
	})
	if err != nil {
		return nil, err
	}
	return hint, nil
}

// VoteExtend records one extend vote. Once the quorum is reached the round
// is lengthened, at most once per round.
func (c *Controller) VoteExtend(ctx context.Context, code model.LobbyCode, conn model.ConnID) (*model.ExtendVotesPayload, error) {
	room, err := c.registry.Get(code)
	if err != nil {
		return nil, err
	}

	var tally *model.ExtendVotesPayload
	err = room.Do(func(l *model.Lobby) error {
		p, ok := l.Players[conn]
		if !ok {
			return model.ErrNotInLobby
		}
		if l.Round.State != model.RoundActive {
			return model.ErrNoActiveRound
		}
		if l.Round.Extended {
			return model.ErrAlreadyExtended
		}
		if p.VotedExtend {
			return model.ErrAlreadyVoted
		}
		p.VotedExtend = true

		votes := 0
		for _, other := range l.Players {
			if other.VotedExtend {
				votes++
			}
		}
		tally = &model.ExtendVotesPayload{Votes: votes, Needed: c.quorum(len(l.Players))}
		c.broadcast(l, model.EventExtendVotes, *tally)

		if votes >= tally.Needed {
			c.extend(l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tally, nil
}

// SetAutoplay toggles automatic round starts for the lobby
func (c *Controller) SetAutoplay(ctx context.Context, code model.LobbyCode, conn model.ConnID, enabled bool) error {
	room, err := c.registry.Get(code)
	if err != nil {
		return err
	}
	return room.Do(func(l *model.Lobby) error {
		if _, ok := l.Players[conn]; !ok {
			return model.ErrNotInLobby
		}
		l.Autoplay = enabled
		c.broadcast(l, model.EventAutoplayChanged, model.AutoplayPayload{Enabled: enabled})
		if enabled {
			c.maybeScheduleNext(l)
		} else {
			c.scheduler.Cancel(autoplayTimer(l.Code))
		}
		return nil
	})
}

// Chat broadcasts a chat line from a seated player
func (c *Controller) Chat(ctx context.Context, code model.LobbyCode, conn model.ConnID, text string) error {
	room, err := c.registry.Get(code)
	if err != nil {
		return err
	}

	var name string
	err = room.Do(func(l *model.Lobby) error {
		p, ok := l.Players[conn]
		if !ok {
			return model.ErrNotInLobby
		}
		name = p.Name
		return nil
	})
	if err != nil {
		return err
	}

	msg, err := c.registry.AppendChat(ctx, code, name, text)
	if err != nil {
		return err
	}
	return room.Do(func(l *model.Lobby) error {
		c.broadcast(l, model.EventChatMessage, msg)
		return nil
	})
}

// Snapshot returns the public state of a lobby's round
func (c *Controller) Snapshot(code model.LobbyCode) (model.RoundSnapshot, error) {
	room, err := c.registry.Get(code)
	if err != nil {
		return model.RoundSnapshot{}, err
	}
	var snap model.RoundSnapshot
	_ = room.Do(func(l *model.Lobby) error {
		snap = roundSnapshot(l.Round, c.clock.Now())
		return nil
	})
	return snap, nil
}

// begin moves the lobby through starting into active. Caller holds the lobby lock.
func (c *Controller) begin(l *model.Lobby) error {
	item, ok := c.pickContent(l)
	if !ok {
		return model.ErrNoContent
	}

	duration := item.Duration
	if duration <= 0 {
		duration = c.cfg.RoundDuration
	}

	l.Round = model.Round{
		Number:    l.Round.Number + 1,
		State:     model.RoundStarting,
		ContentID: item.ID,
		StartedAt: c.clock.Now(),
		Duration:  duration,
	}
	// The audio must stay reachable through a possible extension
	l.Round.ContentToken = c.gate.IssueFor(item.File, duration+c.cfg.ExtendDuration)
	for _, p := range l.Players {
		p.ResetRoundFlags()
	}
	l.RecentContent = append(l.RecentContent, item.ID)
	if over := len(l.RecentContent) - c.cfg.RecentContentWindow; over > 0 {
		l.RecentContent = append([]string(nil), l.RecentContent[over:]...)
	}

	code, number := l.Code, l.Round.Number
	c.scheduler.Cancel(autoplayTimer(code))
	c.scheduler.Schedule(roundTimer(code), duration, func() { c.onRoundTimer(code, number) })

	l.Round.State = model.RoundActive
	c.broadcast(l, model.EventRoundStart, model.RoundStartPayload{
		RoundNumber:  number,
		ContentToken: l.Round.ContentToken,
		DurationMs:   duration.Milliseconds(),
	})

	c.logger.Info("round started",
		slog.String("lobby_code", string(code)),
		slog.Int("round", number),
		slog.String("content_id", item.ID),
		slog.Int("player_count", len(l.Players)),
	)
	return nil
}

// pickContent draws an item outside the recent-content window, falling back
// to the whole catalog when everything is on cooldown
func (c *Controller) pickContent(l *model.Lobby) (model.ContentItem, bool) {
	items := c.catalog.Items()
	if len(items) == 0 {
		return model.ContentItem{}, false
	}

	recent := make(map[string]struct{}, len(l.RecentContent))
	for _, id := range l.RecentContent {
		recent[id] = struct{}{}
	}
	candidates := make([]model.ContentItem, 0, len(items))
	for _, item := range items {
		if _, skip := recent[item.ID]; !skip {
			candidates = append(candidates, item)
		}
	}
	if len(candidates) == 0 {
		candidates = items
	}
	return candidates[c.random.Intn(len(candidates))], true
}

func (c *Controller) extend(l *model.Lobby) {
	l.Round.Extended = true
	l.Round.Duration += c.cfg.ExtendDuration

	remaining := l.Round.EndsAt().Sub(c.clock.Now())
	if remaining < 0 {
		remaining = 0
	}
	code, number := l.Code, l.Round.Number
	c.scheduler.Schedule(roundTimer(code), remaining, func() { c.onRoundTimer(code, number) })

	c.broadcast(l, model.EventRoundExtended, model.RoundExtendedPayload{
		RoundNumber: number,
		DurationMs:  l.Round.Duration.Milliseconds(),
		RemainingMs: remaining.Milliseconds(),
	})
}

func (c *Controller) onRoundTimer(code model.LobbyCode, number int) {
	room, err := c.registry.Get(code)
	if err != nil {
		return
	}
	var rec *recordCandidate
	_ = room.Do(func(l *model.Lobby) error {
		if l.Round.Number != number || l.Round.State != model.RoundActive {
			return nil
		}
		rec = c.finish(l)
		return nil
	})
	c.updateRecord(context.Background(), code, rec)
}

func (c *Controller) onAutoplay(code model.LobbyCode, number int) {
	room, err := c.registry.Get(code)
	if err != nil {
		return
	}
	_ = room.Do(func(l *model.Lobby) error {
		if l.Round.Number != number || !l.Autoplay || !canStart(l.Round.State) {
			return nil
		}
		if len(l.Players) < c.cfg.MinPlayersToAutostart {
			return nil
		}
		if err := c.begin(l); err != nil {
			c.logger.Error("autoplay start failed",
				slog.String("lobby_code", string(code)),
				slog.String("error", err.Error()),
			)
		}
		return nil
	})
}

// maybeScheduleNext arms the autoplay countdown if the lobby is between
// rounds, autoplay is on and enough players are seated
func (c *Controller) maybeScheduleNext(l *model.Lobby) {
	if !l.Autoplay || !canStart(l.Round.State) || len(l.Players) < c.cfg.MinPlayersToAutostart {
		return
	}
	if c.scheduler.Pending(autoplayTimer(l.Code)) {
		return
	}
	code, number := l.Code, l.Round.Number
	c.scheduler.Schedule(autoplayTimer(code), c.cfg.AutoplayDelay, func() { c.onAutoplay(code, number) })
	c.broadcast(l, model.EventNextRoundCountdown, model.NextRoundCountdownPayload{
		Seconds: int(math.Ceil(c.cfg.AutoplayDelay.Seconds())),
	})
}

// points decays linearly from PointsPerCategory at the start of the round to
// MinPoints at its end
func (c *Controller) points(elapsed, duration time.Duration) int {
	if duration <= 0 || elapsed <= 0 {
		return c.cfg.PointsPerCategory
	}
	span := int64(c.cfg.PointsPerCategory - c.cfg.MinPoints)
	p := c.cfg.PointsPerCategory - int(span*int64(elapsed)/int64(duration))
	if p < c.cfg.MinPoints {
		return c.cfg.MinPoints
	}
	return p
}

func (c *Controller) quorum(connected int) int {
	needed := int(math.Ceil(float64(connected) * c.cfg.ExtendQuorumRatio))
	if needed < 1 {
		return 1
	}
	return needed
}

func (c *Controller) displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Player"
	}
	if utf8.RuneCountInString(name) > c.cfg.MaxNameLength {
		name = string([]rune(name)[:c.cfg.MaxNameLength])
	}
	return name
}

func (c *Controller) broadcast(l *model.Lobby, typ model.EventType, payload any) {
	conns := make([]model.ConnID, 0, len(l.Players))
	for id := range l.Players {
		conns = append(conns, id)
	}
	if len(conns) == 0 {
		return
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i] < conns[j] })
	c.out.Send(conns, model.Event{
		Type:      typ,
		Timestamp: c.clock.Now(),
		LobbyCode: l.Code,
		Payload:   payload,
	})
}

func canStart(state model.RoundState) bool {
	return state == model.RoundIdle || state == model.RoundEnded
}

func allGuessed(l *model.Lobby) bool {
	if len(l.Players) == 0 {
		return false
	}
	for _, p := range l.Players {
		for _, cat := range model.Categories {
			if !p.HasGuessed(cat) {
				return false
			}
		}
	}
	return true
}

// snapshots returns the public player list, highest score first
func snapshots(l *model.Lobby) []model.PlayerSnapshot {
	out := make([]model.PlayerSnapshot, 0, len(l.Players))
	for _, p := range l.Players {
		out = append(out, p.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ConnID < out[j].ConnID
	})
	return out
}

func roundSnapshot(r model.Round, now time.Time) model.RoundSnapshot {
	snap := model.RoundSnapshot{
		RoundNumber: r.Number,
		State:       r.State,
		DurationMs:  r.Duration.Milliseconds(),
		Extended:    r.Extended,
	}
	if r.State == model.RoundActive {
		snap.ContentToken = r.ContentToken
		if remaining := r.EndsAt().Sub(now); remaining > 0 {
			snap.RemainingMs = remaining.Milliseconds()
		}
	}
	return snap
}
