package model

import "errors"

// Common errors used across the application
var (
	// User errors
	ErrUserNotFound     = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrNotAuthenticated = errors.New("please log in")
	ErrForbidden        = errors.New("forbidden")

	// Lobby errors
	ErrLobbyNotFound  = errors.New("lobby not found")
	ErrNotInLobby     = errors.New("player is not in lobby")
	ErrAlreadyInLobby = errors.New("connection is already in a lobby")

	// Round errors
	ErrRoundInProgress = errors.New("round already in progress")
	ErrNoActiveRound   = errors.New("no active round")
	ErrStaleRound      = errors.New("guess is for a previous round")
	ErrAlreadyGuessed  = errors.New("category already guessed")
	ErrHintUnavailable = errors.New("hint unavailable")
	ErrAlreadyVoted    = errors.New("already voted to extend")
	ErrAlreadyExtended = errors.New("round already extended")
	ErrNoContent       = errors.New("no content available")
	ErrContentNotFound = errors.New("content not found")
	ErrRecordNotFound  = errors.New("record not found")

	// Economy errors
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOnCooldown        = errors.New("on cooldown")
	ErrInvalidStake      = errors.New("invalid stake")
	ErrConcurrentRequest = errors.New("concurrent request rejected")
	ErrInvalidAction     = errors.New("invalid action")
	ErrNoActiveSession   = errors.New("no active game session")
	ErrSessionInProgress = errors.New("game session already in progress")
	ErrNoLoanOffer       = errors.New("no loan offer available")
	ErrUnknownGame       = errors.New("unknown game")
	ErrRateLimited       = errors.New("too many requests")

	// Asset errors
	ErrAssetNotFound = errors.New("not found")

	// Dictionary errors
	ErrDictionaryNotLoaded = errors.New("dictionary not loaded")
)

// Reason codes sent to socket clients
const (
	ReasonInsufficientFunds = "INSUFFICIENT_FUNDS"
	ReasonNotAuthenticated  = "NOT_AUTHENTICATED"
	ReasonOnCooldown        = "ON_COOLDOWN"
	ReasonInvalidStake      = "INVALID_STAKE"
	ReasonConcurrentRequest = "CONCURRENT_REQUEST_REJECTED"
	ReasonInvalidAction     = "INVALID_ACTION"
	ReasonNoActiveSession   = "NO_ACTIVE_SESSION"
	ReasonSessionInProgress = "SESSION_IN_PROGRESS"
	ReasonNoLoanOffer       = "NO_LOAN_OFFER"
	ReasonStaleRound        = "STALE_ROUND"
	ReasonRoundInProgress   = "ROUND_IN_PROGRESS"
	ReasonNoActiveRound     = "NO_ACTIVE_ROUND"
	ReasonAlreadyGuessed    = "ALREADY_GUESSED"
	ReasonHintUnavailable   = "HINT_UNAVAILABLE"
	ReasonAlreadyVoted      = "ALREADY_VOTED"
	ReasonAlreadyExtended   = "ALREADY_EXTENDED"
	ReasonNoContent         = "NO_CONTENT"
	ReasonLobbyNotFound     = "LOBBY_NOT_FOUND"
	ReasonNotInLobby        = "NOT_IN_LOBBY"
	ReasonAlreadyInLobby    = "ALREADY_IN_LOBBY"
	ReasonRateLimited       = "RATE_LIMITED"
	ReasonUnavailable       = "SERVICE_UNAVAILABLE" // retry later
	ReasonInternal          = "INTERNAL_ERROR"
)

var reasonByErr = []struct {
	err    error
	reason string
}{
	{ErrInsufficientFunds, ReasonInsufficientFunds},
	{ErrNotAuthenticated, ReasonNotAuthenticated},
	{ErrUserNotFound, ReasonNotAuthenticated},
	{ErrOnCooldown, ReasonOnCooldown},
	{ErrInvalidStake, ReasonInvalidStake},
	{ErrConcurrentRequest, ReasonConcurrentRequest},
	{ErrInvalidAction, ReasonInvalidAction},
	{ErrUnknownGame, ReasonInvalidAction},
	{ErrNoActiveSession, ReasonNoActiveSession},
	{ErrSessionInProgress, ReasonSessionInProgress},
	{ErrNoLoanOffer, ReasonNoLoanOffer},
	{ErrStaleRound, ReasonStaleRound},
	{ErrRoundInProgress, ReasonRoundInProgress},
	{ErrNoActiveRound, ReasonNoActiveRound},
	{ErrAlreadyGuessed, ReasonAlreadyGuessed},
	{ErrHintUnavailable, ReasonHintUnavailable},
	{ErrAlreadyVoted, ReasonAlreadyVoted},
	{ErrAlreadyExtended, ReasonAlreadyExtended},
	{ErrNoContent, ReasonNoContent},
	{ErrLobbyNotFound, ReasonLobbyNotFound},
	{ErrNotInLobby, ReasonNotInLobby},
	{ErrAlreadyInLobby, ReasonAlreadyInLobby},
	{ErrRateLimited, ReasonRateLimited},
	{ErrDictionaryNotLoaded, ReasonUnavailable},
}

// ReasonFor maps an error to the reason code shown to clients
func ReasonFor(err error) string {
	for _, r := range reasonByErr {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return ReasonInternal
}
