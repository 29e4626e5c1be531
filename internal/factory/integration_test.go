package factory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/round"
	"github.com/sqrrr/gamehub/internal/storage/memory"
)

type IntegrationSuite struct {
	suite.Suite
	store *memory.Storage
	app   *TestApp
	ctx   context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.app = NewTestAppWithStorage(s.store, Config{})
	s.Require().NoError(s.app.LoadTestDictionary())
}

// restart flushes the ledger and builds a fresh app over the same storage
func (s *IntegrationSuite) restart() {
	s.Require().NoError(s.app.Ledger.Flush(s.ctx))
	s.app.StopRealtime()
	s.app = NewTestAppWithStorage(s.store, Config{})
	s.Require().NoError(s.app.Ledger.Load(s.ctx))
}

func (s *IntegrationSuite) register(username string) {
	_, err := s.app.Auth.Register(s.ctx, username, "correct-horse")
	s.Require().NoError(err)
}

func (s *IntegrationSuite) spin(username string, bet int) (*model.TransactionResult, error) {
	params, err := json.Marshal(map[string]int{"bet": bet})
	s.Require().NoError(err)
	return s.app.Economy.Attempt(s.ctx, username, model.GameSlots, "spin", params)
}

// Test: a full round in the shared lobby credits the registered player's stats
func (s *IntegrationSuite) TestRoundFlowRecordsStats() {
	s.register("alice")

	joined, err := s.app.Rounds.Join(s.ctx, round.JoinRequest{Conn: "c1", Name: "Alice", Username: "alice"})
	s.Require().NoError(err)
	s.Equal(model.SharedLobbyCode, joined.Code)

	_, err = s.app.Rounds.Join(s.ctx, round.JoinRequest{Conn: "c2", Name: "Guest"})
	s.Require().NoError(err)

	s.Require().NoError(s.app.Rounds.StartRound(s.ctx, model.SharedLobbyCode, "c1"))
	snap, err := s.app.Rounds.Snapshot(model.SharedLobbyCode)
	s.Require().NoError(err)
	s.Equal(model.RoundActive, snap.State)
	s.NotEmpty(snap.ContentToken)

	// The round's audio resolves through its token only
	ref, err := s.app.Gate.Resolve(snap.ContentToken)
	s.Require().NoError(err)
	s.Equal("zelda.mp3", ref)

	s.app.MockClock.Advance(2 * time.Second)
	res, err := s.app.Rounds.SubmitGuess(s.ctx, model.SharedLobbyCode, "c1", "zelda", snap.RoundNumber)
	s.Require().NoError(err)
	s.Equal([]model.Category{model.CategoryGame}, res.Correct)

	_, err = s.app.Rounds.SubmitGuess(s.ctx, model.SharedLobbyCode, "c1", "overworld theme", snap.RoundNumber)
	s.Require().NoError(err)

	// The guest never answers, so the timer ends the round
	s.app.MockClock.Advance(30 * time.Second)
	snap, err = s.app.Rounds.Snapshot(model.SharedLobbyCode)
	s.Require().NoError(err)
	s.Equal(model.RoundEnded, snap.State)

	u, err := s.app.Ledger.Get("alice")
	s.Require().NoError(err)
	s.Equal(1, u.Stats.GamesPlayed)
	s.Equal(1, u.Stats.GamesGuessed)
	s.Positive(u.Stats.TotalPoints)

	s.restart()
	u, err = s.app.Ledger.Get("alice")
	s.Require().NoError(err)
	s.Equal(1, u.Stats.GamesGuessed)
	s.Equal(1, u.Stats.GameHistory["vgm"])
}

// Test: economy balances and nonces survive a restart
func (s *IntegrationSuite) TestEconomyFlowSurvivesRestart() {
	s.register("bob")

	res, err := s.spin("bob", 10)
	s.Require().NoError(err)
	s.True(res.Applied)
	s.Equal(model.StartingCoins-10+res.Payout, res.Coins)

	s.restart()

	bal, err := s.app.Economy.Balance("bob")
	s.Require().NoError(err)
	s.Equal(res.Coins, bal.Coins)

	u, err := s.app.Ledger.Get("bob")
	s.Require().NoError(err)
	s.Equal(int64(1), u.Nonce)

	_, err = s.spin("bob", 10)
	s.Require().NoError(err)
	u, _ = s.app.Ledger.Get("bob")
	s.Equal(int64(2), u.Nonce)
}

// Test: running out of coins offers a loan that can be repaid later
func (s *IntegrationSuite) TestLoanAndRepay() {
	s.register("carol")
	_, err := s.app.Ledger.Update("carol", func(u *model.User) error {
		u.Coins = 5
		return nil
	})
	s.Require().NoError(err)

	res, err := s.spin("carol", 10)
	s.ErrorIs(err, model.ErrInsufficientFunds)
	s.Equal(model.ReasonInsufficientFunds, res.Reason)
	s.Equal(int64(5), res.Coins)
	s.True(s.app.Economy.HasLoanOffer("carol"))

	loan, err := s.app.Economy.RequestLoan(s.ctx, "carol", 10)
	s.Require().NoError(err)
	s.Equal(int64(5)+loan.Amount, loan.Coins)
	s.Equal(loan.Amount, loan.Debt)

	bal, err := s.app.Economy.RepayDebt(s.ctx, "carol", loan.Amount)
	s.Require().NoError(err)
	s.Equal(int64(5), bal.Coins)
	s.Zero(bal.Debt)
}

// Test: wordle guesses are graded against the stored word list after a restart
func (s *IntegrationSuite) TestWordleUsesStoredDictionary() {
	s.register("dave")
	s.Require().NoError(s.store.SaveDictionaryWords(s.ctx, []string{"crane", "slate", "pixel"}))
	s.restart()
	s.Require().NoError(s.app.Dictionary.LoadFromStorage(s.ctx))

	params, err := json.Marshal(map[string]string{"word": "crane"})
	s.Require().NoError(err)
	_, err = s.app.Economy.Attempt(s.ctx, "dave", model.GameWordle, "guess", params)
	s.Require().NoError(err)

	view, err := s.app.Economy.WordleState("dave")
	s.Require().NoError(err)
	s.Require().Len(view.Guesses, 1)
	s.Equal("crane", view.Guesses[0].Word)
}

// Test: an admin penalty zeroes coins and leaves debt alone
func (s *IntegrationSuite) TestPenalty() {
	s.register("erin")
	_, err := s.app.Ledger.Update("erin", func(u *model.User) error {
		u.Debt = 300
		return nil
	})
	s.Require().NoError(err)

	bal, err := s.app.Economy.Penalize(s.ctx, "erin")
	s.Require().NoError(err)
	s.Zero(bal.Coins)
	s.Equal(int64(300), bal.Debt)
}

func (s *IntegrationSuite) TestPrivateLobbyIsolation() {
	s.app.MockRandom.QueueString("KQXZ")

	created, err := s.app.Rounds.Create(s.ctx, round.JoinRequest{Conn: "c1", Name: "Host"})
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("KQXZ"), created.Code)

	s.Require().NoError(s.app.Rounds.StartRound(s.ctx, created.Code, "c1"))

	shared, err := s.app.Rounds.Snapshot(model.SharedLobbyCode)
	s.Require().NoError(err)
	s.NotEqual(model.RoundActive, shared.State)
}
