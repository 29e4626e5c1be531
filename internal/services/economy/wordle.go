package economy

import (
	"strings"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

// WordSource supplies the daily answer and the accepted guess list
type WordSource interface {
	DailyWord(dayKey string) (string, error)
	IsValidWord(word string) bool
}

// LetterMark grades one letter of a guess
type LetterMark string

const (
	MarkCorrect LetterMark = "correct"
	MarkPresent LetterMark = "present"
	MarkAbsent  LetterMark = "absent"
)

// WordleGuess is a graded guess
type WordleGuess struct {
	Word  string       `json:"word"`
	Marks []LetterMark `json:"marks"`
}

// WordleView is a player's progress for one day. Answer is only set once
// the day is finished.
type WordleView struct {
	DayKey     string                `json:"dayKey"`
	Guesses    []WordleGuess         `json:"guesses"`
	Status     model.DailyWordStatus `json:"status"`
	MaxGuesses int                   `json:"maxGuesses"`
	Answer     string                `json:"answer,omitempty"`
	ResetsAt   time.Time             `json:"resetsAt"`
}

// Wordle is the daily word game. Days are calendar days in a fixed
// reference timezone so every player resets at the same instant.
type Wordle struct {
	cfg   WordleConfig
	words WordSource
	loc   *time.Location
}

// NewWordle creates the wordle game
func NewWordle(cfg WordleConfig, words WordSource, loc *time.Location) *Wordle {
	return &Wordle{cfg: cfg, words: words, loc: loc}
}

func (g *Wordle) Name() model.GameName { return model.GameWordle }

// DayKey returns the calendar day of t in the reference timezone
func (g *Wordle) DayKey(t time.Time) string {
	return t.In(g.loc).Format("2006-01-02")
}

// nextReset returns the next local midnight after t
func (g *Wordle) nextReset(t time.Time) time.Time {
	local := t.In(g.loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, g.loc)
}

type guessParams struct {
	Word string `json:"word"`
}

// today returns the user's state for dayKey, starting fresh on a new day
func today(u *model.User, dayKey string) model.DailyWordState {
	if u.DailyWord.DayKey != dayKey {
		return model.DailyWordState{
			DayKey:           dayKey,
			Status:           model.DailyWordPlaying,
			LastCompletedDay: u.DailyWord.LastCompletedDay,
		}
	}
	return u.DailyWord
}

func (g *Wordle) Prepare(req Request, user *model.User) (int64, error) {
	if req.Action != "guess" {
		return 0, model.ErrInvalidAction
	}
	dayKey := g.DayKey(req.Now)
	if _, err := g.words.DailyWord(dayKey); err != nil {
		return 0, err
	}
	state := today(user, dayKey)
	if state.Status != model.DailyWordPlaying {
		return 0, model.ErrOnCooldown
	}

	var p guessParams
	if err := decodeParams(req.Params, &p); err != nil {
		return 0, err
	}
	if !g.words.IsValidWord(strings.ToLower(strings.TrimSpace(p.Word))) {
		return 0, model.ErrInvalidAction
	}
	return 0, nil
}

func (g *Wordle) Resolve(req Request, user *model.User, rng random.Random) (Settlement, error) {
	dayKey := g.DayKey(req.Now)
	answer, err := g.words.DailyWord(dayKey)
	if err != nil {
		return Settlement{}, err
	}

	var p guessParams
	_ = decodeParams(req.Params, &p)
	word := strings.ToLower(strings.TrimSpace(p.Word))

	state := today(user, dayKey)
	seen := len(state.Guesses)
	state.Guesses = append(state.Guesses, word)

	var payout int64
	switch {
	case word == answer:
		state.Status = model.DailyWordWon
		payout = g.cfg.PayoutByGuess[len(state.Guesses)-1]
	case len(state.Guesses) >= g.cfg.MaxGuesses:
		state.Status = model.DailyWordLost
	}
	if state.Status != model.DailyWordPlaying {
		state.LastCompletedDay = dayKey
	}

	view := g.view(state, answer, req.Now)
	return Settlement{
		Payout:  payout,
		Outcome: view,
		Win:     state.Status == model.DailyWordWon,
		Apply: func(u *model.User) error {
			// Reject if another guess for today landed since the snapshot
			current := today(u, dayKey)
			if current.Status != model.DailyWordPlaying || len(current.Guesses) != seen {
				return model.ErrOnCooldown
			}
			u.DailyWord = state
			return nil
		},
	}, nil
}

// View returns the user's progress for the current day
func (g *Wordle) View(u *model.User, now time.Time) (*WordleView, error) {
	dayKey := g.DayKey(now)
	answer, err := g.words.DailyWord(dayKey)
	if err != nil {
		return nil, err
	}
	return g.view(today(u, dayKey), answer, now), nil
}

func (g *Wordle) view(state model.DailyWordState, answer string, now time.Time) *WordleView {
	v := &WordleView{
		DayKey:     state.DayKey,
		Status:     state.Status,
		MaxGuesses: g.cfg.MaxGuesses,
		Guesses:    make([]WordleGuess, len(state.Guesses)),
		ResetsAt:   g.nextReset(now),
	}
	for i, w := range state.Guesses {
		v.Guesses[i] = WordleGuess{Word: w, Marks: Mark(w, answer)}
	}
	if state.Status != model.DailyWordPlaying {
		v.Answer = answer
	}
	return v
}

// Mark grades guess against answer. Exact letters are matched first so a
// repeated letter is only marked present as many times as it remains unmatched.
func Mark(guess, answer string) []LetterMark {
	g, a := []rune(guess), []rune(answer)
	marks := make([]LetterMark, len(g))
	remaining := make(map[rune]int)

	for i := range g {
		if i < len(a) && g[i] == a[i] {
			marks[i] = MarkCorrect
		} else if i < len(a) {
			remaining[a[i]]++
		}
	}
	for i := range g {
		if marks[i] == MarkCorrect {
			continue
		}
		if remaining[g[i]] > 0 {
			marks[i] = MarkPresent
			remaining[g[i]]--
		} else {
			marks[i] = MarkAbsent
		}
	}
	return marks
}
