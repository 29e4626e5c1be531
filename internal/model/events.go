package model

import "time"

// EventType is the name of a server-to-client event
type EventType string

const (
	// Connection events
	EventConnected EventType = "connected"

	// Lobby events
	EventLobbyCreated EventType = "lobbyCreated"
	EventLobbyJoined  EventType = "lobbyJoined"
	EventPlayerList   EventType = "playerList"
	EventChatHistory  EventType = "chatHistory"
	EventChatMessage  EventType = "chatMessage"
	EventLobbyError   EventType = "lobbyError"

	// Round events
	EventRoundStart         EventType = "roundStart"
	EventRoundError         EventType = "roundError"
	EventGuessResult        EventType = "guessResult"
	EventCorrectGuess       EventType = "correctGuess"
	EventCloseGuess         EventType = "closeGuess"
	EventHintRevealed       EventType = "hintRevealed"
	EventExtendVotes        EventType = "extendVotes"
	EventRoundExtended      EventType = "roundExtended"
	EventRoundEnd           EventType = "roundEnd"
	EventAutoplayChanged    EventType = "autoplayChanged"
	EventNextRoundCountdown EventType = "nextRoundCountdown"
	EventNewRecord          EventType = "newRecord"

	// Economy events
	EventLoanReceived EventType = "slotsLoanReceived"
	EventDebtRepaid   EventType = "debtRepaid"
	EventBalance      EventType = "balance"
	EventWordleState  EventType = "wordleState"
	EventError        EventType = "error"
)

// Economy reply suffixes, appended to the game name
const (
	SuffixResult            = "Result"
	SuffixInsufficientFunds = "InsufficientFunds"
	SuffixError             = "Error"
)

// GameEvent returns the reply event name for a game, e.g. slotsResult
func GameEvent(game GameName, suffix string) EventType {
	return EventType(string(game) + suffix)
}

// Event is a single server-to-client message
type Event struct {
	Type      EventType
	Timestamp time.Time
	LobbyCode LobbyCode // Empty for direct replies
	Payload   any
}

// ConnectedPayload greets a new socket connection
type ConnectedPayload struct {
	ConnID   ConnID `json:"id"`
	Username string `json:"username,omitempty"`
}

// LobbyJoinedPayload is sent to the joining connection
type LobbyJoinedPayload struct {
	Code     LobbyCode        `json:"code"`
	ConnID   ConnID           `json:"id"`
	Players  []PlayerSnapshot `json:"players"`
	Round    RoundSnapshot    `json:"round"`
	Autoplay bool             `json:"autoplay"`
}

// PlayerListPayload is broadcast whenever membership changes
type PlayerListPayload struct {
	Players []PlayerSnapshot `json:"players"`
}

// ChatHistoryPayload carries the retained chat for a room
type ChatHistoryPayload struct {
	Messages []ChatMessage `json:"messages"`
}

// RoundSnapshot is the client-safe view of a round
type RoundSnapshot struct {
	RoundNumber  int        `json:"roundNumber"`
	State        RoundState `json:"state"`
	ContentToken string     `json:"contentToken,omitempty"`
	DurationMs   int64      `json:"durationMs"`
	RemainingMs  int64      `json:"remainingMs"`
	Extended     bool       `json:"extended"`
}

// RoundStartPayload is broadcast when a round becomes active
type RoundStartPayload struct {
	RoundNumber  int    `json:"roundNumber"`
	ContentToken string `json:"contentToken"`
	DurationMs   int64  `json:"durationMs"`
}

// ReasonPayload carries a rejection reason
type ReasonPayload struct {
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

// GuessResultPayload is the private reply to a guess
type GuessResultPayload struct {
	RoundNumber int        `json:"roundNumber"`
	Correct     []Category `json:"correct"`
	Close       bool       `json:"close"`
	Points      int        `json:"points"`
	HintPoints  int        `json:"hintPoints"`
}

// CorrectGuessPayload is broadcast for the first correct answer of a category
type CorrectGuessPayload struct {
	Name      string   `json:"name"`
	Category  Category `json:"category"`
	Points    int      `json:"points"`
	ElapsedMs int64    `json:"elapsedMs"`
}

// CloseGuessPayload is broadcast for a near miss, without the guess text
type CloseGuessPayload struct {
	Name string `json:"name"`
}

// HintRevealedPayload is sent to the player who spent a hint
type HintRevealedPayload struct {
	Category   Category `json:"category"`
	Hint       string   `json:"hint"`
	HintPoints int      `json:"hintPoints"`
}

// ExtendVotesPayload is broadcast on every extend vote
type ExtendVotesPayload struct {
	Votes  int `json:"votes"`
	Needed int `json:"needed"`
}

// RoundExtendedPayload is broadcast when the extend quorum is reached
type RoundExtendedPayload struct {
	RoundNumber int   `json:"roundNumber"`
	DurationMs  int64 `json:"durationMs"`
	RemainingMs int64 `json:"remainingMs"`
}

// RoundEndPayload reveals the answers and final standings
type RoundEndPayload struct {
	RoundNumber    int                 `json:"roundNumber"`
	CorrectAnswers map[Category]string `json:"correctAnswers"`
	Players        []PlayerSnapshot    `json:"players"`
}

// AutoplayPayload is broadcast when autoplay is toggled
type AutoplayPayload struct {
	Enabled bool `json:"enabled"`
}

// NextRoundCountdownPayload announces an automatic next round
type NextRoundCountdownPayload struct {
	Seconds int `json:"seconds"`
}

// NewRecordPayload is broadcast when a content record is beaten
type NewRecordPayload struct {
	Name         string `json:"name"`
	FastestMs    int64  `json:"fastestMs"`
	PreviousMs   int64  `json:"previousMs,omitempty"`
	PreviousName string `json:"previousName,omitempty"`
}

// LoanReceivedPayload is the reply to an accepted loan request
type LoanReceivedPayload struct {
	Coins  int64 `json:"coins"`
	Debt   int64 `json:"debt"`
	Amount int64 `json:"amount"`
}
