package model

import "time"

// LobbyCode is a 4-character room identifier
type LobbyCode string

// SharedLobbyCode is the well-known room for the shared music game
const SharedLobbyCode LobbyCode = "VGM0"

// ConnID identifies one live socket connection
type ConnID string

// Lobby is a room of connected players sharing one round state
type Lobby struct {
	Code     LobbyCode
	Players  map[ConnID]*LobbyPlayer
	Round    Round
	Autoplay bool

	// RecentContent holds the ids of the most recently played items, oldest first
	RecentContent []string

	// Persistent lobbies are never removed when they empty out
	Persistent bool
	CreatedAt  time.Time
}

// NewLobby creates an empty lobby in the idle state
func NewLobby(code LobbyCode, now time.Time) *Lobby {
	return &Lobby{
		Code:      code,
		Players:   make(map[ConnID]*LobbyPlayer),
		Round:     Round{State: RoundIdle},
		CreatedAt: now,
	}
}

// LobbyPlayer is one connection's seat in a lobby
type LobbyPlayer struct {
	ConnID         ConnID
	Name           string
	Username       string // empty for guests
	ProfilePicture string
	JoinedAt       time.Time

	Score      int
	HintPoints int
	Streak     int

	// Per-round flags, reset when a round starts
	UsedHintThisRound bool
	Guessed           map[Category]time.Time
	VotedExtend       bool
	RoundPoints       int
}

// ResetRoundFlags clears everything scoped to a single round
func (p *LobbyPlayer) ResetRoundFlags() {
	p.UsedHintThisRound = false
	p.Guessed = make(map[Category]time.Time)
	p.VotedExtend = false
	p.RoundPoints = 0
}

// HasGuessed reports whether the player already scored the category this round
func (p *LobbyPlayer) HasGuessed(c Category) bool {
	_, ok := p.Guessed[c]
	return ok
}

// PlayerSnapshot is the public view of a lobby player
type PlayerSnapshot struct {
	ConnID         ConnID `json:"id"`
	Name           string `json:"name"`
	Username       string `json:"username,omitempty"`
	ProfilePicture string `json:"profilePicture,omitempty"`
	Score          int    `json:"score"`
	HintPoints     int    `json:"hintPoints"`
	Streak         int    `json:"streak"`
	RoundPoints    int    `json:"roundPoints"`
	GuessedGame    bool   `json:"guessedGame"`
	GuessedSong    bool   `json:"guessedSong"`
}

// Snapshot returns the public view of the player
func (p *LobbyPlayer) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		ConnID:         p.ConnID,
		Name:           p.Name,
		Username:       p.Username,
		ProfilePicture: p.ProfilePicture,
		Score:          p.Score,
		HintPoints:     p.HintPoints,
		Streak:         p.Streak,
		RoundPoints:    p.RoundPoints,
		GuessedGame:    p.HasGuessed(CategoryGame),
		GuessedSong:    p.HasGuessed(CategorySong),
	}
}

// RoundState is a state of the per-lobby round machine
type RoundState string

const (
	RoundIdle     RoundState = "idle"
	RoundStarting RoundState = "starting"
	RoundActive   RoundState = "active"
	RoundGrading  RoundState = "grading"
	RoundEnded    RoundState = "ended"
)

// Round is the current or most recent round of a lobby
type Round struct {
	Number       int
	State        RoundState
	ContentID    string
	ContentToken string
	StartedAt    time.Time
	Duration     time.Duration
	Extended     bool

	// FirstCorrectAt is the time of the earliest correct answer this round
	FirstCorrectAt *time.Time
}

// EndsAt returns when the round timer expires
func (r Round) EndsAt() time.Time {
	return r.StartedAt.Add(r.Duration)
}
