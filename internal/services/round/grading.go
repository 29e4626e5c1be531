package round

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sqrrr/gamehub/internal/model"
)

// recordCandidate is what a finished round contributes to the content record
type recordCandidate struct {
	contentID string
	fastest   time.Duration
	holder    string // empty when nobody answered
}

// finish grades the active round, writes player stats through the ledger and
// reveals the answers. Caller holds the lobby lock.
func (c *Controller) finish(l *model.Lobby) *recordCandidate {
	c.scheduler.Cancel(roundTimer(l.Code))
	l.Round.State = model.RoundGrading

	item, err := c.catalog.Get(l.Round.ContentID)
	if err != nil {
		c.logger.Error("graded round has unknown content",
			slog.String("lobby_code", string(l.Code)),
			slog.String("content_id", l.Round.ContentID),
		)
	}

	rec := &recordCandidate{contentID: l.Round.ContentID}
	sonic := make(map[model.ConnID]bool, len(l.Players))
	best := 0
	for id, p := range l.Players {
		if c.superSonic(l.Round, p) {
			sonic[id] = true
			p.Score += c.cfg.SuperSonicBonus
			p.RoundPoints += c.cfg.SuperSonicBonus
		}
		if len(p.Guessed) > 0 {
			p.Streak++
		} else {
			p.Streak = 0
		}
		if p.RoundPoints > best {
			best = p.RoundPoints
		}
		if l.Round.FirstCorrectAt != nil && earliest(p).Equal(*l.Round.FirstCorrectAt) && rec.holder == "" {
			rec.holder = p.Name
			rec.fastest = l.Round.FirstCorrectAt.Sub(l.Round.StartedAt)
		}
	}

	for id, p := range l.Players {
		c.recordStats(p, sonic[id], best > 0 && p.RoundPoints == best)
	}

	answers := make(map[model.Category]string, len(model.Categories))
	for _, cat := range model.Categories {
		answers[cat] = item.Canonical(cat)
	}
	c.broadcast(l, model.EventRoundEnd, model.RoundEndPayload{
		RoundNumber:    l.Round.Number,
		CorrectAnswers: answers,
		Players:        snapshots(l),
	})
	l.Round.State = model.RoundEnded

	c.logger.Info("round ended",
		slog.String("lobby_code", string(l.Code)),
		slog.Int("round", l.Round.Number),
		slog.Int("top_points", best),
	)

	c.maybeScheduleNext(l)
	return rec
}

// superSonic reports whether p gave the first correct answer of the round
// inside the bonus window
func (c *Controller) superSonic(r model.Round, p *model.LobbyPlayer) bool {
	if r.FirstCorrectAt == nil || r.FirstCorrectAt.Sub(r.StartedAt) > c.cfg.SuperSonicWindow {
		return false
	}
	return earliest(p).Equal(*r.FirstCorrectAt)
}

func earliest(p *model.LobbyPlayer) time.Time {
	var first time.Time
	for _, at := range p.Guessed {
		if first.IsZero() || at.Before(first) {
			first = at
		}
	}
	return first
}

// recordStats writes one round's outcome to a registered player's stats.
// Guests have nothing to write.
func (c *Controller) recordStats(p *model.LobbyPlayer, superSonic, won bool) {
	if p.Username == "" {
		return
	}
	_, err := c.ledger.Update(p.Username, func(u *model.User) error {
		u.Stats.GamesPlayed++
		if len(p.Guessed) > 0 {
			u.Stats.GamesGuessed++
		}
		if superSonic {
			u.Stats.SuperSonics++
		}
		if p.UsedHintThisRound {
			u.Stats.HintsUsed++
		}
		u.Stats.TotalPoints += p.RoundPoints
		if won {
			u.Stats.GameHistory[string(model.GameVGM)]++
		}
		return nil
	})
	if err != nil {
		c.logger.Warn("failed to record round stats",
			slog.String("username", p.Username),
			slog.String("error", err.Error()),
		)
	}
}

// updateRecord counts the play and replaces the content's fastest-guess record
// when this round beat it. Runs outside the lobby lock.
func (c *Controller) updateRecord(ctx context.Context, code model.LobbyCode, cand *recordCandidate) {
	if cand == nil || cand.contentID == "" {
		return
	}

	record, err := c.storage.GetContentRecord(ctx, cand.contentID)
	switch {
	case errors.Is(err, model.ErrRecordNotFound):
		record = &model.ContentRecord{ContentID: cand.contentID}
	case err != nil:
		c.logger.Error("failed to load content record",
			slog.String("content_id", cand.contentID),
			slog.String("error", err.Error()),
		)
		return
	}

	record.TimesPlayed++
	var beaten *model.NewRecordPayload
	if cand.holder != "" && (record.Holder == "" || cand.fastest < record.FastestGuess) {
		beaten = &model.NewRecordPayload{
			Name:      cand.holder,
			FastestMs: cand.fastest.Milliseconds(),
		}
		if record.Holder != "" {
			beaten.PreviousMs = record.FastestGuess.Milliseconds()
			beaten.PreviousName = record.Holder
		}
		record.FastestGuess = cand.fastest
		record.Holder = cand.holder
		record.SetAt = c.clock.Now()
	}

	if err := c.storage.SaveContentRecord(ctx, record); err != nil {
		c.logger.Error("failed to save content record",
			slog.String("content_id", cand.contentID),
			slog.String("error", err.Error()),
		)
	}

	if beaten == nil {
		return
	}
	room, err := c.registry.Get(code)
	if err != nil {
		return
	}
	_ = room.Do(func(l *model.Lobby) error {
		c.broadcast(l, model.EventNewRecord, *beaten)
		return nil
	})
}
