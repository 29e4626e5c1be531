// Package economy runs every coin-moving minigame through one transaction
// contract: check, debit, resolve, credit, reply with the full balance.
package economy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/ledger"
)

// RandomSource returns the random stream for one transaction
type RandomSource func(username string, nonce int64) random.Random

// StreamSource derives each transaction's randomness from a server seed so
// outcomes can be replayed from (seed, username, nonce)
func StreamSource(seed []byte) RandomSource {
	return func(username string, nonce int64) random.Random {
		return random.NewStream(seed, username, nonce)
	}
}

type loanOffer struct {
	game     model.GameName
	required int64
	at       time.Time
}

// Service is the economy transaction handler
type Service struct {
	ledger *ledger.Ledger
	clock  clock.Clock
	logger *slog.Logger
	cfg    Config
	rng    RandomSource

	games map[model.GameName]Game

	mu     sync.Mutex
	offers map[string]loanOffer
}

// New creates the economy Service with its games registered
func New(l *ledger.Ledger, clk clock.Clock, rng RandomSource, logger *slog.Logger, cfg Config, words WordSource) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("economy config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	s := &Service{
		ledger: l,
		clock:  clk,
		logger: logger.With(slog.String("component", "economy")),
		cfg:    cfg,
		rng:    rng,
		games:  make(map[model.GameName]Game),
		offers: make(map[string]loanOffer),
	}
	s.register(NewSlots(cfg.Slots))
	s.register(NewStacking(cfg.Stacking))
	s.register(NewFishing(cfg.Fishing))
	s.register(NewCards(cfg.Cards))
	s.register(NewWordle(cfg.Wordle, words, loc))
	return s, nil
}

func (s *Service) register(g Game) {
	s.games[g.Name()] = g
}

// Config returns the active pay tables
func (s *Service) Config() Config {
	return s.cfg
}

// Attempt runs one economy action. On rejection the returned result still
// carries the unchanged balance when the user is known.
func (s *Service) Attempt(ctx context.Context, username string, game model.GameName, action string, params json.RawMessage) (*model.TransactionResult, error) {
	if username == "" {
		return nil, model.ErrNotAuthenticated
	}
	g, ok := s.games[game]
	if !ok {
		return nil, model.ErrUnknownGame
	}
	if !s.ledger.Exists(username) {
		return nil, model.ErrNotAuthenticated
	}

	release, ok := s.ledger.TryAcquire(username)
	if !ok {
		return s.reject(username, model.ErrConcurrentRequest)
	}
	defer release()

	user, err := s.ledger.Get(username)
	if err != nil {
		return nil, model.ErrNotAuthenticated
	}

	req := Request{Username: username, Action: action, Params: params, Now: s.clock.Now()}

	stake, err := g.Prepare(req, user)
	if err != nil {
		return s.reject(username, err)
	}
	if stake < 0 {
		return s.reject(username, model.ErrInvalidStake)
	}
	if stake > user.Coins {
		s.offerLoan(username, game, stake)
		return s.reject(username, model.ErrInsufficientFunds)
	}

	var nonce int64
	debited, err := s.ledger.Update(username, func(u *model.User) error {
		if u.Coins < stake {
			return model.ErrInsufficientFunds
		}
		u.Coins -= stake
		nonce = u.Nonce
		u.Nonce++
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrInsufficientFunds) {
			s.offerLoan(username, game, stake)
		}
		return s.reject(username, err)
	}

	settlement, err := g.Resolve(req, debited, s.rng(username, nonce))
	if err != nil {
		s.refund(username, game, stake)
		return s.reject(username, err)
	}

	credited, err := s.ledger.Update(username, func(u *model.User) error {
		if settlement.Apply != nil {
			if err := settlement.Apply(u); err != nil {
				return err
			}
		}
		u.Coins += settlement.Payout
		if settlement.Win {
			u.Stats.GameHistory[string(game)]++
		}
		return nil
	})
	if err != nil {
		s.refund(username, game, stake)
		return s.reject(username, err)
	}

	s.logger.Info("transaction applied",
		slog.String("username", username),
		slog.String("game", string(game)),
		slog.String("action", action),
		slog.Int64("stake", stake),
		slog.Int64("payout", settlement.Payout),
		slog.Int64("nonce", nonce),
		slog.Int64("coins", credited.Coins),
	)

	return &model.TransactionResult{
		Applied: true,
		Coins:   credited.Coins,
		Debt:    credited.Debt,
		Stake:   stake,
		Payout:  settlement.Payout,
		Outcome: settlement.Outcome,
	}, nil
}

// refund returns a debited stake when the outcome could not be committed
func (s *Service) refund(username string, game model.GameName, stake int64) {
	if stake == 0 {
		return
	}
	if _, err := s.ledger.Update(username, func(u *model.User) error {
		u.Coins += stake
		return nil
	}); err != nil {
		s.logger.Error("refund failed",
			slog.String("username", username),
			slog.String("game", string(game)),
			slog.Int64("stake", stake),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) reject(username string, err error) (*model.TransactionResult, error) {
	result := &model.TransactionResult{Reason: model.ReasonFor(err)}
	if u, getErr := s.ledger.Get(username); getErr == nil {
		result.Coins = u.Coins
		result.Debt = u.Debt
	}
	return result, err
}

func (s *Service) offerLoan(username string, game model.GameName, required int64) {
	s.mu.Lock()
	s.offers[username] = loanOffer{game: game, required: required, at: s.clock.Now()}
	s.mu.Unlock()
}

// HasLoanOffer reports whether the user has an unclaimed loan offer
func (s *Service) HasLoanOffer(username string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.offers[username]
	return ok
}

// Sweep drops abandoned game sessions: fishing casts past their reel window
// and stacking runs idle past their timeout
func (s *Service) Sweep() int {
	now := s.clock.Now()
	n := 0
	for _, g := range s.games {
		if sw, ok := g.(interface{ Sweep(time.Time) int }); ok {
			n += sw.Sweep(now)
		}
	}
	if n > 0 {
		s.logger.Info("abandoned sessions swept", slog.Int("count", n))
	}
	return n
}

// RequestLoan consumes the user's pending offer and adds the loan amount to
// both coins and debt in one update. The offer is spent even if it was for a
// larger shortfall than one loan covers.
func (s *Service) RequestLoan(ctx context.Context, username string, requiredAmount int64) (*model.LoanReceivedPayload, error) {
	if username == "" || !s.ledger.Exists(username) {
		return nil, model.ErrNotAuthenticated
	}

	s.mu.Lock()
	offer, ok := s.offers[username]
	delete(s.offers, username)
	s.mu.Unlock()
	if !ok {
		return nil, model.ErrNoLoanOffer
	}

	amount := s.cfg.LoanAmount
	u, err := s.ledger.Update(username, func(u *model.User) error {
		u.Coins += amount
		u.Debt += amount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("loan granted",
		slog.String("username", username),
		slog.String("game", string(offer.game)),
		slog.Int64("required", requiredAmount),
		slog.Int64("amount", amount),
		slog.Int64("debt", u.Debt),
	)
	return &model.LoanReceivedPayload{Coins: u.Coins, Debt: u.Debt, Amount: amount}, nil
}

// RepayDebt moves up to amount coins off the user's debt
func (s *Service) RepayDebt(ctx context.Context, username string, amount int64) (*model.Balance, error) {
	if username == "" {
		return nil, model.ErrNotAuthenticated
	}
	if amount <= 0 {
		return nil, model.ErrInvalidStake
	}

	release, ok := s.ledger.TryAcquire(username)
	if !ok {
		return nil, model.ErrConcurrentRequest
	}
	defer release()

	u, err := s.ledger.Update(username, func(u *model.User) error {
		pay := min(amount, u.Debt)
		if pay == 0 {
			return model.ErrInvalidStake
		}
		if u.Coins < pay {
			return model.ErrInsufficientFunds
		}
		u.Coins -= pay
		u.Debt -= pay
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, model.ErrNotAuthenticated
		}
		return nil, err
	}
	return &model.Balance{Coins: u.Coins, Debt: u.Debt}, nil
}

// Penalize forces a user's coins to zero. Debt is untouched.
func (s *Service) Penalize(ctx context.Context, username string) (*model.Balance, error) {
	// Waits out an in-flight transaction so its payout cannot land afterwards
	release := s.ledger.Acquire(username)
	defer release()

	u, err := s.ledger.Update(username, func(u *model.User) error {
		u.Coins = 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Warn("admin penalty applied", slog.String("username", username))
	return &model.Balance{Coins: u.Coins, Debt: u.Debt}, nil
}

// Balance returns the user's full balance
func (s *Service) Balance(username string) (*model.Balance, error) {
	if username == "" {
		return nil, model.ErrNotAuthenticated
	}
	u, err := s.ledger.Get(username)
	if err != nil {
		return nil, model.ErrNotAuthenticated
	}
	return &model.Balance{Coins: u.Coins, Debt: u.Debt}, nil
}

// WordleState returns today's daily word progress without the answer
func (s *Service) WordleState(username string) (*WordleView, error) {
	if username == "" {
		return nil, model.ErrNotAuthenticated
	}
	u, err := s.ledger.Get(username)
	if err != nil {
		return nil, model.ErrNotAuthenticated
	}
	w := s.games[model.GameWordle].(*Wordle)
	return w.View(u, s.clock.Now())
}

// Cards returns the user's collection
func (s *Service) Cards(username string) (map[string]int, error) {
	u, err := s.ledger.Get(username)
	if err != nil {
		return nil, model.ErrNotAuthenticated
	}
	return u.Cards, nil
}
