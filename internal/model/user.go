package model

import (
	"maps"
	"slices"
	"time"
)

// StartingCoins is the balance every new account begins with
const StartingCoins int64 = 1000

// User is the authoritative ledger entry for one account
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
	IsAdmin      bool   `json:"isAdmin"`

	Coins int64 `json:"coins"`
	Debt  int64 `json:"debt"`

	// Cards maps card id to owned count. Absent means zero.
	Cards               map[string]int `json:"cards"`
	LastFreeCardClaimAt *time.Time     `json:"lastFreeCardClaimAt,omitempty"`

	Stats     UserStats      `json:"stats"`
	DailyWord DailyWordState `json:"dailyWord"`

	// Nonce counts resolved economy transactions and seeds the outcome stream
	Nonce int64 `json:"nonce"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UserStats holds lifetime counters
type UserStats struct {
	GamesPlayed  int            `json:"gamesPlayed"`
	GamesGuessed int            `json:"gamesGuessed"`
	SuperSonics  int            `json:"superSonics"`
	HintsUsed    int            `json:"hintsUsed"`
	TotalPoints  int            `json:"totalPoints"`
	GameHistory  map[string]int `json:"gameHistory"`
}

// DailyWordStatus is the state of a user's daily word for the current day
type DailyWordStatus string

const (
	DailyWordPlaying DailyWordStatus = "playing"
	DailyWordWon     DailyWordStatus = "won"
	DailyWordLost    DailyWordStatus = "lost"
)

// DailyWordState tracks the wordle progress for a single calendar day
type DailyWordState struct {
	DayKey           string          `json:"dayKey"`
	Guesses          []string        `json:"guesses"`
	Status           DailyWordStatus `json:"status"`
	LastCompletedDay string          `json:"lastCompletedDay,omitempty"`
}

// NewUser creates a user with the starting balance
func NewUser(username, passwordHash string, now time.Time) *User {
	return &User{
		Username:     username,
		PasswordHash: passwordHash,
		Coins:        StartingCoins,
		Cards:        make(map[string]int),
		Stats:        UserStats{GameHistory: make(map[string]int)},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy so callers never share maps with the ledger
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Cards = maps.Clone(u.Cards)
	if c.Cards == nil {
		c.Cards = make(map[string]int)
	}
	c.Stats.GameHistory = maps.Clone(u.Stats.GameHistory)
	if c.Stats.GameHistory == nil {
		c.Stats.GameHistory = make(map[string]int)
	}
	c.DailyWord.Guesses = slices.Clone(u.DailyWord.Guesses)
	if u.LastFreeCardClaimAt != nil {
		t := *u.LastFreeCardClaimAt
		c.LastFreeCardClaimAt = &t
	}
	return &c
}
