package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/sqrrr/gamehub/internal/api/middleware"
	"github.com/sqrrr/gamehub/internal/api/response"
	"github.com/sqrrr/gamehub/internal/services/economy"
	"github.com/sqrrr/gamehub/internal/services/ledger"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
)

// EconomyHandler handles the leaderboard and admin balance endpoints
type EconomyHandler struct {
	economy *economy.Service
	ledger  *ledger.Ledger
	logger  *slog.Logger
}

// NewEconomyHandler creates a new economy handler
func NewEconomyHandler(economy *economy.Service, ledger *ledger.Ledger, logger *slog.Logger) *EconomyHandler {
	return &EconomyHandler{
		economy: economy,
		ledger:  ledger,
		logger:  logger,
	}
}

// Leaderboard handles GET /api/v1/leaderboard?limit=N
func (h *EconomyHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLeaderboardLimit {
			WriteError(w, NewInvalidRequestError("limit must be between 1 and 100"))
			return
		}
		limit = n
	}
	response.JSON(w, http.StatusOK, response.LeaderboardFromLedger(h.ledger.Leaderboard(limit)))
}

// Penalty handles POST /api/v1/admin/players/{username}/penalty
func (h *EconomyHandler) Penalty(w http.ResponseWriter, r *http.Request) {
	admin := middleware.MustGetSession(r.Context())
	username := mux.Vars(r)["username"]

	balance, err := h.economy.Penalize(r.Context(), username)
	if err != nil {
		WriteError(w, err)
		return
	}

	h.logger.Warn("penalty issued",
		slog.String("admin", admin.Username),
		slog.String("username", username),
	)
	response.JSON(w, http.StatusOK, response.Balance{
		Username: username,
		Coins:    balance.Coins,
		Debt:     balance.Debt,
	})
}
