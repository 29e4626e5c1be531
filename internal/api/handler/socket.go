package handler

import (
	"net/http"

	"github.com/sqrrr/gamehub/internal/api/middleware"
	"github.com/sqrrr/gamehub/internal/socket"
)

// SocketHandler upgrades GET /socket to the realtime event connection
type SocketHandler struct {
	socket *socket.Handler
}

// NewSocketHandler creates a new socket handler
func NewSocketHandler(socket *socket.Handler) *SocketHandler {
	return &SocketHandler{socket: socket}
}

// Connect handles GET /socket?token=. Without a valid token the connection
// joins as a guest who can play rounds but not touch the economy.
func (h *SocketHandler) Connect(w http.ResponseWriter, r *http.Request) {
	h.socket.Serve(w, r, middleware.GetSession(r.Context()))
}
