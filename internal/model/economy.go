package model

// GameName identifies an economy minigame
type GameName string

const (
	GameSlots    GameName = "slots"
	GameStacking GameName = "stacking"
	GameFishing  GameName = "fishing"
	GameCards    GameName = "cards"
	GameWordle   GameName = "wordle"
	GameVGM      GameName = "vgm"
)

// TransactionResult is the reply to an economy attempt. Coins and Debt are
// always the full authoritative balance, never a delta.
type TransactionResult struct {
	Applied bool   `json:"applied"`
	Coins   int64  `json:"coins"`
	Debt    int64  `json:"debt"`
	Stake   int64  `json:"stake"`
	Payout  int64  `json:"payout"`
	Outcome any    `json:"outcome,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Balance is a full balance snapshot
type Balance struct {
	Coins int64 `json:"coins"`
	Debt  int64 `json:"debt"`
}
