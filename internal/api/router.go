package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sqrrr/gamehub/internal/api/handler"
	"github.com/sqrrr/gamehub/internal/api/middleware"
	"github.com/sqrrr/gamehub/internal/services/assets"
	"github.com/sqrrr/gamehub/internal/services/auth"
	"github.com/sqrrr/gamehub/internal/services/economy"
	"github.com/sqrrr/gamehub/internal/services/ledger"
	"github.com/sqrrr/gamehub/internal/services/lobby"
	"github.com/sqrrr/gamehub/internal/services/round"
	"github.com/sqrrr/gamehub/internal/socket"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger      *slog.Logger
	AuthService *auth.Service
	Ledger      *ledger.Ledger
	Economy     *economy.Service
	Registry    *lobby.Registry
	Rounds      *round.Controller
	Gate        *assets.Gate
	Socket      *socket.Handler
	// AudioDir is where the catalog's audio files live on disk
	AudioDir string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.AuthService, cfg.Ledger)
	economyHandler := handler.NewEconomyHandler(cfg.Economy, cfg.Ledger, cfg.Logger)
	lobbyHandler := handler.NewLobbyHandler(cfg.Registry, cfg.Rounds)
	audioHandler := handler.NewAudioHandler(cfg.Gate, cfg.AudioDir, cfg.Logger)
	socketHandler := handler.NewSocketHandler(cfg.Socket)

	// Create middleware
	authMiddleware := middleware.Auth(cfg.AuthService)
	optionalAuthMiddleware := middleware.OptionalAuth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Player routes (no auth required for registering/logging in)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	// Protected player routes
	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)
	playerProtected.HandleFunc("/logout", playerHandler.Logout).Methods(http.MethodPost)

	api.HandleFunc("/leaderboard", economyHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/lobbies", lobbyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/lobbies/{code}", lobbyHandler.Get).Methods(http.MethodGet)

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware)
	admin.Use(middleware.Admin)
	admin.HandleFunc("/players/{username}/penalty", economyHandler.Penalty).Methods(http.MethodPost)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Audio is only reachable through short-lived tokens
	r.HandleFunc("/audio/{token}", audioHandler.Stream).Methods(http.MethodGet, http.MethodHead)
	r.PathPrefix("/assets/audio/").HandlerFunc(audioHandler.Forbidden)

	// Realtime events; guests connect without a token
	ws := r.PathPrefix("/socket").Subrouter()
	ws.Use(optionalAuthMiddleware)
	ws.HandleFunc("", socketHandler.Connect).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
