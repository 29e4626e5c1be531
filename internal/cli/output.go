package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case Player:
		o.printPlayer(v)
	case AuthResult:
		o.printAuthResult(v)
	case Balance:
		o.printBalance(v)
	case Leaderboard:
		o.printLeaderboard(v)
	case Lobby:
		o.printLobby(v)
	case LobbyList:
		o.printLobbyList(v)
	case SocketMessage:
		o.printSocketMessage(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// Player response type (matches API)
type Player struct {
	Username    string         `json:"username"`
	IsAdmin     bool           `json:"is_admin,omitempty"`
	Coins       int64          `json:"coins"`
	Debt        int64          `json:"debt"`
	Cards       map[string]int `json:"cards"`
	Stats       PlayerStats    `json:"stats"`
	MemberSince time.Time      `json:"member_since"`
}

// PlayerStats response type
type PlayerStats struct {
	GamesPlayed  int            `json:"games_played"`
	GamesGuessed int            `json:"games_guessed"`
	SuperSonics  int            `json:"super_sonics"`
	HintsUsed    int            `json:"hints_used"`
	TotalPoints  int            `json:"total_points"`
	GameHistory  map[string]int `json:"game_history"`
}

// AuthResult is the response of register and login
type AuthResult struct {
	Username     string    `json:"username"`
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Balance response type
type Balance struct {
	Username string `json:"username"`
	Coins    int64  `json:"coins"`
	Debt     int64  `json:"debt"`
}

// LeaderboardEntry response type
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	Username    string `json:"username"`
	Coins       int64  `json:"coins"`
	Debt        int64  `json:"debt"`
	NetWorth    int64  `json:"net_worth"`
	TotalPoints int    `json:"total_points"`
}

// Leaderboard response type
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// RoundSnapshot response type
type RoundSnapshot struct {
	RoundNumber int    `json:"roundNumber"`
	State       string `json:"state"`
	DurationMs  int64  `json:"durationMs"`
	RemainingMs int64  `json:"remainingMs"`
	Extended    bool   `json:"extended"`
}

// Lobby response type
type Lobby struct {
	Code    string        `json:"code"`
	Players int           `json:"players"`
	Round   RoundSnapshot `json:"round"`
}

// LobbyList response type
type LobbyList struct {
	Lobbies []Lobby `json:"lobbies"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
}

func (o *Output) printPlayer(p Player) {
	admin := ""
	if p.IsAdmin {
		admin = " [admin]"
	}
	fmt.Printf("Player: %s%s\n", p.Username, admin)
	fmt.Printf("Coins: %d\n", p.Coins)
	fmt.Printf("Debt: %d\n", p.Debt)
	fmt.Printf("Rounds: %d played, %d guessed, %d super-sonic\n",
		p.Stats.GamesPlayed, p.Stats.GamesGuessed, p.Stats.SuperSonics)
	fmt.Printf("Points: %d\n", p.Stats.TotalPoints)

	if len(p.Cards) > 0 {
		ids := make([]string, 0, len(p.Cards))
		for id := range p.Cards {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Println("Cards:")
		for _, id := range ids {
			fmt.Printf("  %s x%d\n", id, p.Cards[id])
		}
	}
}

func (o *Output) printAuthResult(a AuthResult) {
	fmt.Printf("Player: %s\n", a.Username)
	fmt.Printf("Token: %s\n", a.SessionToken)
	fmt.Printf("Expires: %s\n", a.ExpiresAt.Local().Format(time.RFC1123))
}

func (o *Output) printBalance(b Balance) {
	fmt.Printf("%s: %d coins, %d debt\n", b.Username, b.Coins, b.Debt)
}

func (o *Output) printLeaderboard(l Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Println("No players yet")
		return
	}
	fmt.Printf("%-4s %-20s %10s %10s %10s\n", "#", "Player", "Coins", "Debt", "Net")
	for _, e := range l.Entries {
		fmt.Printf("%-4d %-20s %10d %10d %10d\n", e.Rank, e.Username, e.Coins, e.Debt, e.NetWorth)
	}
}

func (o *Output) printLobby(l Lobby) {
	fmt.Printf("Lobby: %s\n", l.Code)
	fmt.Printf("Players: %d\n", l.Players)
	if l.Round.RoundNumber == 0 {
		fmt.Println("Round: none yet")
		return
	}
	fmt.Printf("Round %d: %s", l.Round.RoundNumber, l.Round.State)
	if l.Round.State == "active" {
		fmt.Printf(" (%ds left)", l.Round.RemainingMs/1000)
	}
	fmt.Println()
}

func (o *Output) printLobbyList(l LobbyList) {
	for _, lobby := range l.Lobbies {
		fmt.Printf("%s  %d players  round %d %s\n",
			lobby.Code, lobby.Players, lobby.Round.RoundNumber, lobby.Round.State)
	}
}

func (o *Output) printSocketMessage(m SocketMessage) {
	var pretty strings.Builder
	pretty.WriteString(m.Event)
	if len(m.Data) > 0 {
		pretty.WriteString(": ")
		pretty.Write(m.Data)
	}
	fmt.Println(pretty.String())
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	if h.Latency != "" {
		fmt.Printf("Latency: %s\n", h.Latency)
	}
}
