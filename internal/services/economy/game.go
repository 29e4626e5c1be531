package economy

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
)

// errEmptyTable means a weighted draw had nothing with a positive weight.
// Validate rejects such tables; the check in each game keeps the refund path.
var errEmptyTable = errors.New("weighted table has no positive weight")

// Request is one economy action as received from a client
type Request struct {
	Username string
	Action   string
	Params   json.RawMessage
	Now      time.Time
}

// Settlement is what a resolved action pays and changes
type Settlement struct {
	Payout  int64
	Outcome any
	Win     bool

	// Apply mutates the user in the same commit as the payout. It may reject
	// the commit, in which case the stake is refunded.
	Apply func(u *model.User) error
}

// Game is one economy minigame. Prepare must do every check that can fail
// so that Resolve, which runs after the stake is debited, only computes.
type Game interface {
	Name() model.GameName

	// Prepare validates the request against a snapshot of the user and
	// returns the stake to debit
	Prepare(req Request, user *model.User) (int64, error)

	// Resolve computes the outcome with the transaction's random stream
	Resolve(req Request, user *model.User, rng random.Random) (Settlement, error)
}

// decodeParams unmarshals optional params, treating empty as {}
func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidAction, err)
	}
	return nil
}

// betParams is shared by every game that takes a wager
type betParams struct {
	Bet int64 `json:"bet"`
}

func parseBet(raw json.RawMessage, allowed []int64) (int64, error) {
	var p betParams
	if err := decodeParams(raw, &p); err != nil {
		return 0, err
	}
	if !slices.Contains(allowed, p.Bet) {
		return 0, model.ErrInvalidStake
	}
	return p.Bet, nil
}

// percentOf returns amount * pct / 100
func percentOf(amount, pct int64) int64 {
	return amount * pct / 100
}
