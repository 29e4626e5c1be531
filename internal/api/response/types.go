package response

import (
	"time"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/auth"
	"github.com/sqrrr/gamehub/internal/services/ledger"
)

// Player is a user's public profile with their full balance
type Player struct {
	Username    string         `json:"username"`
	IsAdmin     bool           `json:"is_admin,omitempty"`
	Coins       int64          `json:"coins"`
	Debt        int64          `json:"debt"`
	Cards       map[string]int `json:"cards"`
	Stats       Stats          `json:"stats"`
	MemberSince time.Time      `json:"member_since"`
}

// Stats is the lifetime counters block of a profile
type Stats struct {
	GamesPlayed  int            `json:"games_played"`
	GamesGuessed int            `json:"games_guessed"`
	SuperSonics  int            `json:"super_sonics"`
	HintsUsed    int            `json:"hints_used"`
	TotalPoints  int            `json:"total_points"`
	GameHistory  map[string]int `json:"game_history"`
}

// PlayerFromModel converts a model.User to a response Player
func PlayerFromModel(u *model.User) Player {
	return Player{
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		Coins:    u.Coins,
		Debt:     u.Debt,
		Cards:    u.Cards,
		Stats: Stats{
			GamesPlayed:  u.Stats.GamesPlayed,
			GamesGuessed: u.Stats.GamesGuessed,
			SuperSonics:  u.Stats.SuperSonics,
			HintsUsed:    u.Stats.HintsUsed,
			TotalPoints:  u.Stats.TotalPoints,
			GameHistory:  u.Stats.GameHistory,
		},
		MemberSince: u.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Username     string    `json:"username"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Username:     s.Username,
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// LeaderboardEntry is one ranked row
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	Coins       int64  `json:"coins"`
	Debt        int64  `json:"debt"`
	NetWorth    int64  `json:"net_worth"`
	TotalPoints int    `json:"total_points"`
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromLedger ranks ledger entries from 1
func LeaderboardFromLedger(entries []ledger.LeaderboardEntry) Leaderboard {
	out := make([]LeaderboardEntry, len(entries))
	for i, e := range entries {
		out[i] = LeaderboardEntry{
			Rank:        i + 1,
			Username:    e.Username,
			Coins:       e.Coins,
			Debt:        e.Debt,
			NetWorth:    e.Coins - e.Debt,
			TotalPoints: e.TotalPoints,
		}
	}
	return Leaderboard{Entries: out}
}

// Balance is a user's full balance
type Balance struct {
	Username string `json:"username"`
	Coins    int64  `json:"coins"`
	Debt     int64  `json:"debt"`
}

// Lobby summarises one room
type Lobby struct {
	Code    string              `json:"code"`
	Players int                 `json:"players"`
	Round   model.RoundSnapshot `json:"round"`
}

// Lobbies is the response for the lobby listing
type Lobbies struct {
	Lobbies []Lobby `json:"lobbies"`
}
