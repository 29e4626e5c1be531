package economy

import (
	"time"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/dictionary"
	"github.com/sqrrr/gamehub/internal/storage/memory"
)

func (s *EconomySuite) newYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	s.Require().NoError(err)
	return loc
}

// wrongWord returns a valid guess that is not the answer for dayKey
func (s *EconomySuite) wrongWord(dayKey string) string {
	answer, err := s.words.DailyWord(dayKey)
	s.Require().NoError(err)
	for _, w := range []string{"crane", "slate", "pixel"} {
		if w != answer {
			return w
		}
	}
	s.FailNow("no wrong word available")
	return ""
}

func (s *EconomySuite) TestWordleWinJustBeforeMidnightThenNewDay() {
	ny := s.newYork()
	s.clock.Set(time.Date(2024, 3, 9, 23, 59, 58, 0, ny))
	answer, err := s.words.DailyWord("2024-03-09")
	s.Require().NoError(err)

	_, err = s.attempt(model.GameWordle, "guess", map[string]string{"word": s.wrongWord("2024-03-09")})
	s.Require().NoError(err)

	s.clock.Advance(time.Second) // 23:59:59 local
	result, err := s.attempt(model.GameWordle, "guess", map[string]string{"word": answer})
	s.Require().NoError(err)
	s.Equal(int64(300), result.Payout)
	s.Equal(int64(1300), result.Coins)

	view := result.Outcome.(*WordleView)
	s.Equal(model.DailyWordWon, view.Status)
	s.Equal(answer, view.Answer)

	_, err = s.attempt(model.GameWordle, "guess", map[string]string{"word": answer})
	s.ErrorIs(err, model.ErrOnCooldown)

	s.clock.Advance(2 * time.Second) // 00:00:01 next day
	result, err = s.attempt(model.GameWordle, "guess", map[string]string{"word": s.wrongWord("2024-03-10")})
	s.Require().NoError(err)
	view = result.Outcome.(*WordleView)
	s.Equal("2024-03-10", view.DayKey)
	s.Equal(model.DailyWordPlaying, view.Status)
	s.Len(view.Guesses, 1)

	u, _ := s.ledger.Get("alice")
	s.Equal(1, u.Stats.GameHistory["wordle"])
	s.Equal("2024-03-09", u.DailyWord.LastCompletedDay)
}

func (s *EconomySuite) TestWordleFirstGuessWinPaysTopTier() {
	dayKey := s.service.games[model.GameWordle].(*Wordle).DayKey(s.clock.Now())
	answer, _ := s.words.DailyWord(dayKey)

	result, err := s.attempt(model.GameWordle, "guess", map[string]string{"word": answer})
	s.Require().NoError(err)
	s.Equal(int64(500), result.Payout)
	s.Zero(result.Stake)
}

func (s *EconomySuite) TestWordleLossAfterMaxGuesses() {
	dayKey := s.service.games[model.GameWordle].(*Wordle).DayKey(s.clock.Now())
	wrong := s.wrongWord(dayKey)

	var result *model.TransactionResult
	for i := 0; i < 6; i++ {
		var err error
		result, err = s.attempt(model.GameWordle, "guess", map[string]string{"word": wrong})
		s.Require().NoError(err)
	}
	view := result.Outcome.(*WordleView)
	s.Equal(model.DailyWordLost, view.Status)
	s.NotEmpty(view.Answer)
	s.Zero(result.Payout)

	_, err := s.attempt(model.GameWordle, "guess", map[string]string{"word": wrong})
	s.ErrorIs(err, model.ErrOnCooldown)
}

func (s *EconomySuite) TestWordleRejectsUnknownWords() {
	_, err := s.attempt(model.GameWordle, "guess", map[string]string{"word": "zzzzz"})
	s.ErrorIs(err, model.ErrInvalidAction)

	_, err = s.attempt(model.GameWordle, "guess", map[string]string{"word": "cranes"})
	s.ErrorIs(err, model.ErrInvalidAction)
}

func (s *EconomySuite) TestWordleStateHidesAnswerWhilePlaying() {
	dayKey := s.service.games[model.GameWordle].(*Wordle).DayKey(s.clock.Now())
	_, err := s.attempt(model.GameWordle, "guess", map[string]string{"word": s.wrongWord(dayKey)})
	s.Require().NoError(err)

	view, err := s.service.WordleState("alice")
	s.Require().NoError(err)
	s.Equal(model.DailyWordPlaying, view.Status)
	s.Empty(view.Answer)
	s.Len(view.Guesses, 1)
	s.Len(view.Guesses[0].Marks, 5)
}

func (s *EconomySuite) TestWordleResetsAtLocalMidnight() {
	ny := s.newYork()
	w := s.service.games[model.GameWordle].(*Wordle)

	s.Equal("2024-03-09", w.DayKey(time.Date(2024, 3, 10, 4, 59, 59, 0, time.UTC)))
	s.Equal("2024-03-10", w.DayKey(time.Date(2024, 3, 10, 5, 0, 1, 0, time.UTC)))
	reset := w.nextReset(time.Date(2024, 3, 9, 12, 0, 0, 0, ny))
	s.True(time.Date(2024, 3, 10, 0, 0, 0, 0, ny).Equal(reset), reset.String())
}

func (s *EconomySuite) TestWordleMarksRepeatedLetters() {
	s.Equal([]LetterMark{MarkAbsent, MarkAbsent, MarkPresent, MarkAbsent, MarkPresent}, Mark("speed", "abide"))
	s.Equal([]LetterMark{MarkCorrect, MarkCorrect, MarkCorrect, MarkCorrect, MarkCorrect}, Mark("crane", "crane"))
	s.Equal([]LetterMark{MarkAbsent, MarkPresent, MarkCorrect, MarkCorrect, MarkAbsent}, Mark("lolly", "hello"))
}

func (s *EconomySuite) TestWordleWithoutDictionaryAsksClientToRetry() {
	s.words = dictionary.New(memory.New())
	s.build()

	result, err := s.attempt(model.GameWordle, "guess", map[string]string{"word": "crane"})
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
	s.Equal(model.ReasonUnavailable, result.Reason)
	s.Equal(model.StartingCoins, result.Coins)
}
