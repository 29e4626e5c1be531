package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sqrrr/gamehub/internal/api/response"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/lobby"
	"github.com/sqrrr/gamehub/internal/services/round"
)

// LobbyHandler exposes read-only views of the open rooms
type LobbyHandler struct {
	registry *lobby.Registry
	rounds   *round.Controller
}

// NewLobbyHandler creates a new lobby handler
func NewLobbyHandler(registry *lobby.Registry, rounds *round.Controller) *LobbyHandler {
	return &LobbyHandler{
		registry: registry,
		rounds:   rounds,
	}
}

// List handles GET /api/v1/lobbies
func (h *LobbyHandler) List(w http.ResponseWriter, r *http.Request) {
	codes := h.registry.Codes()
	out := response.Lobbies{Lobbies: make([]response.Lobby, 0, len(codes))}
	for _, code := range codes {
		summary, err := h.summary(code)
		if err != nil {
			// Closed between listing and reading
			continue
		}
		out.Lobbies = append(out.Lobbies, summary)
	}
	response.JSON(w, http.StatusOK, out)
}

// Get handles GET /api/v1/lobbies/{code}
func (h *LobbyHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := model.LobbyCode(strings.ToUpper(mux.Vars(r)["code"]))
	summary, err := h.summary(code)
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, summary)
}

func (h *LobbyHandler) summary(code model.LobbyCode) (response.Lobby, error) {
	room, err := h.registry.Get(code)
	if err != nil {
		return response.Lobby{}, err
	}
	snap, err := h.rounds.Snapshot(code)
	if err != nil {
		return response.Lobby{}, err
	}
	players := 0
	_ = room.Do(func(l *model.Lobby) error {
		players = len(l.Players)
		return nil
	})
	return response.Lobby{Code: string(room.Code()), Players: players, Round: snap}, nil
}
