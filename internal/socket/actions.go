package socket

import "github.com/sqrrr/gamehub/internal/model"

// ActionKind names a client-to-server action
type ActionKind string

// Lobby and round actions
const (
	ActionCreateLobby ActionKind = "createLobby"
	ActionJoinLobby   ActionKind = "joinLobby"
	ActionLeaveLobby  ActionKind = "leaveLobby"
	ActionStartRound  ActionKind = "startRound"
	ActionSubmitGuess ActionKind = "submitGuess"
	ActionRequestHint ActionKind = "requestHint"
	ActionVoteExtend  ActionKind = "voteExtend"
	ActionSetAutoplay ActionKind = "setAutoplay"
	ActionChatMessage ActionKind = "chatMessage"
)

// Economy actions
const (
	ActionSlotsSpin        ActionKind = "slotsSpin"
	ActionStackingStart    ActionKind = "stackingStart"
	ActionStackingDrop     ActionKind = "stackingDrop"
	ActionStackingCashout  ActionKind = "stackingCashout"
	ActionFishingCast      ActionKind = "fishingCast"
	ActionFishingReel      ActionKind = "fishingReel"
	ActionCardsBuyPack     ActionKind = "cardsBuyPack"
	ActionCardsClaimFree   ActionKind = "cardsClaimFree"
	ActionCardsSell        ActionKind = "cardsSell"
	ActionWordleGuess      ActionKind = "wordleGuess"
	ActionWordleState      ActionKind = "wordleState"
	ActionSlotsRequestLoan ActionKind = "slotsRequestLoan"
	ActionRepayDebt        ActionKind = "repayDebt"
	ActionGetBalance       ActionKind = "getBalance"
)

// transaction is the economy game and action an event maps onto
type transaction struct {
	game   model.GameName
	action string
}

var transactions = map[ActionKind]transaction{
	ActionSlotsSpin:       {model.GameSlots, "spin"},
	ActionStackingStart:   {model.GameStacking, "start"},
	ActionStackingDrop:    {model.GameStacking, "drop"},
	ActionStackingCashout: {model.GameStacking, "cashout"},
	ActionFishingCast:     {model.GameFishing, "cast"},
	ActionFishingReel:     {model.GameFishing, "reel"},
	ActionCardsBuyPack:    {model.GameCards, "buyPack"},
	ActionCardsClaimFree:  {model.GameCards, "claimFree"},
	ActionCardsSell:       {model.GameCards, "sell"},
	ActionWordleGuess:     {model.GameWordle, "guess"},
}

type joinData struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

type guessData struct {
	Guess       string `json:"guess"`
	RoundNumber int    `json:"roundNumber"`
}

type autoplayData struct {
	Enabled bool `json:"enabled"`
}

type chatData struct {
	Text string `json:"text"`
}

type loanData struct {
	RequiredAmount int64 `json:"requiredAmount"`
}

type repayData struct {
	Amount int64 `json:"amount"`
}
