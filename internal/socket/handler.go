// Package socket carries the realtime event surface over websockets: one
// read loop per connection, a typed action dispatch, and a hub that fans
// server events out to named connections.
package socket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/auth"
	"github.com/sqrrr/gamehub/internal/services/economy"
	"github.com/sqrrr/gamehub/internal/services/lobby"
	"github.com/sqrrr/gamehub/internal/services/round"
)

var _ round.Broadcaster = (*Hub)(nil)

// SessionValidator resolves a session token to its session
type SessionValidator interface {
	ValidateSession(token string) (*auth.Session, error)
}

// Handler upgrades connections and dispatches their actions
type Handler struct {
	hub      *Hub
	sessions SessionValidator
	rounds   *round.Controller
	economy  *economy.Service
	registry *lobby.Registry
	clock    clock.Clock
	logger   *slog.Logger
	cfg      Config
	upgrader websocket.Upgrader
}

// NewHandler creates a socket Handler
func NewHandler(
	hub *Hub,
	sessions SessionValidator,
	rounds *round.Controller,
	economy *economy.Service,
	registry *lobby.Registry,
	clock clock.Clock,
	logger *slog.Logger,
	cfg Config,
) *Handler {
	h := &Handler{
		hub:      hub,
		sessions: sessions,
		rounds:   rounds,
		economy:  economy,
		registry: registry,
		clock:    clock,
		logger:   logger.With(slog.String("component", "socket")),
		cfg:      cfg,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, r.Header.Get("Origin"))
}

// Serve upgrades the request and runs the connection until it closes.
// session is nil for guests.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, session *auth.Session) {
	username := ""
	if session != nil {
		username = session.Username
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := NewClient(model.ConnID(uuid.NewString()), username, conn, h.cfg, h.logger)
	if session != nil {
		client.token = session.Token
	}
	if err := h.hub.Register(client); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	h.reply(client, model.EventConnected, model.ConnectedPayload{ConnID: client.id, Username: username})

	ctx := r.Context()
	client.readPump(ctx, h.cfg.MaxMessageSize, h.Handle)
	h.Disconnect(context.WithoutCancel(ctx), client)
}

// Attach registers a client that is driven without a websocket
func (h *Handler) Attach(client *Client) error {
	return h.hub.Register(client)
}

// account returns the user the client acts for. A client whose session has
// ended since it connected is downgraded to a guest.
func (h *Handler) account(c *Client) string {
	if c.username == "" {
		return ""
	}
	session, err := h.sessions.ValidateSession(c.token)
	if err != nil || session.Username != c.username {
		c.logger.Info("session ended, continuing as guest")
		c.username = ""
		c.token = ""
		return ""
	}
	return c.username
}

// Disconnect takes the client out of its lobby and the hub
func (h *Handler) Disconnect(ctx context.Context, c *Client) {
	if c.lobby != "" {
		if err := h.rounds.Leave(ctx, c.lobby, c.id); err != nil && !errors.Is(err, model.ErrLobbyNotFound) {
			c.logger.Warn("leave on disconnect failed", slog.String("error", err.Error()))
		}
		c.lobby = ""
	}
	h.hub.Unregister(c)
}

// Handle dispatches one action. Every reply goes back through the hub.
func (h *Handler) Handle(ctx context.Context, c *Client, env Envelope) {
	if !c.limiter.Allow() {
		if !c.throttled {
			c.throttled = true
			h.fail(c, model.EventError, model.ErrRateLimited)
		}
		return
	}
	c.throttled = false

	c.logger.Debug("socket action", slog.String("event", string(env.Event)))

	switch env.Event {
	case ActionCreateLobby:
		h.join(ctx, c, env, true)
	case ActionJoinLobby:
		h.join(ctx, c, env, false)
	case ActionLeaveLobby:
		h.leave(ctx, c)
	case ActionStartRound:
		h.startRound(ctx, c)
	case ActionSubmitGuess:
		h.submitGuess(ctx, c, env)
	case ActionRequestHint:
		h.requestHint(ctx, c)
	case ActionVoteExtend:
		h.voteExtend(ctx, c)
	case ActionSetAutoplay:
		h.setAutoplay(ctx, c, env)
	case ActionChatMessage:
		h.chat(ctx, c, env)
	case ActionWordleState:
		h.wordleState(c)
	case ActionSlotsRequestLoan:
		h.requestLoan(ctx, c, env)
	case ActionRepayDebt:
		h.repayDebt(ctx, c, env)
	case ActionGetBalance:
		h.balance(c)
	default:
		tx, ok := transactions[env.Event]
		if !ok {
			h.fail(c, model.EventError, model.ErrInvalidAction)
			return
		}
		h.transact(ctx, c, env, tx)
	}
}

func (h *Handler) join(ctx context.Context, c *Client, env Envelope, create bool) {
	var d joinData
	if err := decode(env.Data, &d); err != nil {
		h.fail(c, model.EventLobbyError, err)
		return
	}

	// Switching rooms leaves the current one first
	if c.lobby != "" {
		h.leave(ctx, c)
	}

	username := h.account(c)
	name := d.Name
	if strings.TrimSpace(name) == "" {
		name = username
	}
	req := round.JoinRequest{
		Conn:           c.id,
		Code:           model.LobbyCode(strings.ToUpper(strings.TrimSpace(d.Code))),
		Name:           name,
		Username:       username,
		ProfilePicture: d.ProfilePicture,
	}

	var (
		joined *model.LobbyJoinedPayload
		err    error
		typ    = model.EventLobbyJoined
	)
	if create {
		joined, err = h.rounds.Create(ctx, req)
		typ = model.EventLobbyCreated
	} else {
		joined, err = h.rounds.Join(ctx, req)
	}
	if err != nil {
		h.fail(c, model.EventLobbyError, err)
		return
	}

	c.lobby = joined.Code
	h.reply(c, typ, joined)
	h.reply(c, model.EventChatHistory, model.ChatHistoryPayload{Messages: h.registry.ChatHistory(ctx, joined.Code)})
}

func (h *Handler) leave(ctx context.Context, c *Client) {
	if c.lobby == "" {
		h.fail(c, model.EventLobbyError, model.ErrNotInLobby)
		return
	}
	code := c.lobby
	c.lobby = ""
	if err := h.rounds.Leave(ctx, code, c.id); err != nil && !errors.Is(err, model.ErrLobbyNotFound) {
		h.fail(c, model.EventLobbyError, err)
	}
}

func (h *Handler) startRound(ctx context.Context, c *Client) {
	if err := h.rounds.StartRound(ctx, c.lobby, c.id); err != nil {
		h.fail(c, model.EventRoundError, h.lobbyErr(c, err))
	}
}

func (h *Handler) submitGuess(ctx context.Context, c *Client, env Envelope) {
	var d guessData
	if err := decode(env.Data, &d); err != nil {
		h.fail(c, model.EventRoundError, err)
		return
	}
	result, err := h.rounds.SubmitGuess(ctx, c.lobby, c.id, d.Guess, d.RoundNumber)
	if err != nil {
		h.fail(c, model.EventRoundError, h.lobbyErr(c, err))
		return
	}
	h.reply(c, model.EventGuessResult, result)
}

func (h *Handler) requestHint(ctx context.Context, c *Client) {
	hint, err := h.rounds.RequestHint(ctx, c.lobby, c.id)
	if err != nil {
		h.fail(c, model.EventRoundError, h.lobbyErr(c, err))
		return
	}
	h.reply(c, model.EventHintRevealed, hint)
}

func (h *Handler) voteExtend(ctx context.Context, c *Client) {
	// The tally and any extension are broadcast by the controller
	if _, err := h.rounds.VoteExtend(ctx, c.lobby, c.id); err != nil {
		h.fail(c, model.EventRoundError, h.lobbyErr(c, err))
	}
}

func (h *Handler) setAutoplay(ctx context.Context, c *Client, env Envelope) {
	var d autoplayData
	if err := decode(env.Data, &d); err != nil {
		h.fail(c, model.EventRoundError, err)
		return
	}
	if err := h.rounds.SetAutoplay(ctx, c.lobby, c.id, d.Enabled); err != nil {
		h.fail(c, model.EventRoundError, h.lobbyErr(c, err))
	}
}

func (h *Handler) chat(ctx context.Context, c *Client, env Envelope) {
	var d chatData
	if err := decode(env.Data, &d); err != nil {
		h.fail(c, model.EventLobbyError, err)
		return
	}
	if err := h.rounds.Chat(ctx, c.lobby, c.id, d.Text); err != nil {
		h.fail(c, model.EventLobbyError, h.lobbyErr(c, err))
	}
}

// lobbyErr reports a connection outside any lobby as not seated rather than
// as an unknown lobby
func (h *Handler) lobbyErr(c *Client, err error) error {
	if c.lobby == "" && errors.Is(err, model.ErrLobbyNotFound) {
		return model.ErrNotInLobby
	}
	return err
}

// transact runs one economy attempt and replies with {game}Result,
// {game}InsufficientFunds or {game}Error
func (h *Handler) transact(ctx context.Context, c *Client, env Envelope, tx transaction) {
	result, err := h.economy.Attempt(ctx, h.account(c), tx.game, tx.action, env.Data)
	switch {
	case err == nil:
		h.reply(c, model.GameEvent(tx.game, model.SuffixResult), result)
	case errors.Is(err, model.ErrInsufficientFunds):
		h.reply(c, model.GameEvent(tx.game, model.SuffixInsufficientFunds), result)
	case result != nil:
		c.logger.Debug("transaction rejected",
			slog.String("game", string(tx.game)),
			slog.String("action", tx.action),
			slog.String("reason", result.Reason))
		h.reply(c, model.GameEvent(tx.game, model.SuffixError), result)
	default:
		h.fail(c, model.GameEvent(tx.game, model.SuffixError), err)
	}
}

func (h *Handler) wordleState(c *Client) {
	view, err := h.economy.WordleState(h.account(c))
	if err != nil {
		h.fail(c, model.GameEvent(model.GameWordle, model.SuffixError), err)
		return
	}
	h.reply(c, model.EventWordleState, view)
}

func (h *Handler) requestLoan(ctx context.Context, c *Client, env Envelope) {
	var d loanData
	if err := decode(env.Data, &d); err != nil {
		h.fail(c, model.GameEvent(model.GameSlots, model.SuffixError), err)
		return
	}
	loan, err := h.economy.RequestLoan(ctx, h.account(c), d.RequiredAmount)
	if err != nil {
		h.fail(c, model.GameEvent(model.GameSlots, model.SuffixError), err)
		return
	}
	h.reply(c, model.EventLoanReceived, loan)
}

func (h *Handler) repayDebt(ctx context.Context, c *Client, env Envelope) {
	var d repayData
	if err := decode(env.Data, &d); err != nil {
		h.fail(c, model.EventError, err)
		return
	}
	balance, err := h.economy.RepayDebt(ctx, h.account(c), d.Amount)
	if err != nil {
		h.fail(c, model.EventError, err)
		return
	}
	h.reply(c, model.EventDebtRepaid, balance)
}

func (h *Handler) balance(c *Client) {
	balance, err := h.economy.Balance(h.account(c))
	if err != nil {
		h.fail(c, model.EventError, err)
		return
	}
	h.reply(c, model.EventBalance, balance)
}

func (h *Handler) reply(c *Client, typ model.EventType, payload any) {
	h.hub.Send([]model.ConnID{c.id}, model.Event{
		Type:      typ,
		Timestamp: h.clock.Now(),
		LobbyCode: c.lobby,
		Payload:   payload,
	})
}

// fail replies with a reason code. Unexpected errors are logged and their
// text is withheld from the client.
func (h *Handler) fail(c *Client, typ model.EventType, err error) {
	reason := model.ReasonFor(err)
	message := err.Error()
	if reason == model.ReasonInternal {
		c.logger.Error("socket action failed",
			slog.String("event", string(typ)),
			slog.String("error", err.Error()))
		message = "internal error"
	}
	h.reply(c, typ, model.ReasonPayload{Reason: reason, Message: message})
}
