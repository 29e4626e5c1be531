// Package lobby holds the room registry: every live lobby keyed by code,
// each guarded by its own mutex.
package lobby

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/dependencies/random"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage"
)

const (
	// CodeLength is the length of generated lobby codes
	CodeLength = 4
	// CodeAlphabet is the characters used in lobby codes (avoid confusing chars)
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	maxCodeAttempts = 32
)

// ErrCodeSpaceExhausted is returned when no free lobby code could be found
var ErrCodeSpaceExhausted = errors.New("could not allocate a lobby code")

// Config holds registry settings
type Config struct {
	ChatHistoryLimit int
	MaxChatLength    int
}

// DefaultConfig returns default registry settings
func DefaultConfig() Config {
	return Config{
		ChatHistoryLimit: 50,
		MaxChatLength:    200,
	}
}

// Room is one lobby and the lock that serializes everything done to it
type Room struct {
	code model.LobbyCode

	mu     sync.Mutex
	lobby  *model.Lobby
	closed bool
}

// Code returns the room code
func (r *Room) Code() model.LobbyCode {
	return r.code
}

// Do runs fn with exclusive access to the lobby
func (r *Room) Do(fn func(l *model.Lobby) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.lobby)
}

// Closed reports whether the room has been removed from the registry
func (r *Room) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Registry maps lobby codes to rooms
type Registry struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
	cfg     Config

	mu    sync.RWMutex
	rooms map[model.LobbyCode]*Room
}

// New creates a Registry holding only the shared lobby
func New(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Registry {
	if cfg.ChatHistoryLimit <= 0 {
		cfg.ChatHistoryLimit = DefaultConfig().ChatHistoryLimit
	}
	if cfg.MaxChatLength <= 0 {
		cfg.MaxChatLength = DefaultConfig().MaxChatLength
	}
	r := &Registry{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "lobby")),
		cfg:     cfg,
		rooms:   make(map[model.LobbyCode]*Room),
	}

	shared := model.NewLobby(model.SharedLobbyCode, clock.Now())
	shared.Persistent = true
	r.rooms[shared.Code] = &Room{code: shared.Code, lobby: shared}
	return r
}

// Create opens a new lobby under a fresh code
func (r *Registry) Create() (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < maxCodeAttempts; i++ {
		code := model.LobbyCode(r.random.String(CodeLength, CodeAlphabet))
		if len(code) != CodeLength {
			continue
		}
		if _, taken := r.rooms[code]; taken {
			continue
		}
		room := &Room{code: code, lobby: model.NewLobby(code, r.clock.Now())}
		r.rooms[code] = room
		r.logger.Info("lobby created", slog.String("code", string(code)))
		return room, nil
	}
	return nil, ErrCodeSpaceExhausted
}

// Get returns the room for code
func (r *Registry) Get(code model.LobbyCode) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[normalizeCode(code)]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}
	return room, nil
}

// Shared returns the well-known lobby
func (r *Registry) Shared() *Room {
	room, _ := r.Get(model.SharedLobbyCode)
	return room
}

// Codes returns the codes of every open lobby, sorted
func (r *Registry) Codes() []model.LobbyCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]model.LobbyCode, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// Len returns the number of open lobbies
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Join seats player in the lobby. Per-round flags start cleared.
func (r *Registry) Join(code model.LobbyCode, player *model.LobbyPlayer) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room, ok := r.rooms[normalizeCode(code)]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.closed {
		return nil, model.ErrLobbyNotFound
	}
	if _, exists := room.lobby.Players[player.ConnID]; exists {
		return nil, model.ErrAlreadyInLobby
	}

	player.JoinedAt = r.clock.Now()
	player.ResetRoundFlags()
	room.lobby.Players[player.ConnID] = player
	return room, nil
}

// Leave removes a connection from the lobby. A lobby left empty is removed
// unless it is persistent; the returned room is then marked closed.
func (r *Registry) Leave(code model.LobbyCode, conn model.ConnID) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = normalizeCode(code)
	room, ok := r.rooms[code]
	if !ok {
		return nil, model.ErrLobbyNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if _, ok := room.lobby.Players[conn]; !ok {
		return nil, model.ErrNotInLobby
	}
	delete(room.lobby.Players, conn)

	if len(room.lobby.Players) == 0 && !room.lobby.Persistent {
		room.closed = true
		delete(r.rooms, code)
		r.logger.Info("lobby removed", slog.String("code", string(code)))
	}
	return room, nil
}

// AppendChat records a chat line for the room. Storage failures are logged;
// the message is still returned for broadcast.
func (r *Registry) AppendChat(ctx context.Context, code model.LobbyCode, name, text string) (model.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return model.ChatMessage{}, model.ErrInvalidAction
	}
	if utf8.RuneCountInString(text) > r.cfg.MaxChatLength {
		text = string([]rune(text)[:r.cfg.MaxChatLength])
	}
	if _, err := r.Get(code); err != nil {
		return model.ChatMessage{}, err
	}

	msg := model.ChatMessage{
		Room:   normalizeCode(code),
		Name:   name,
		Text:   text,
		SentAt: r.clock.Now(),
	}
	if err := r.storage.AppendChat(ctx, msg, r.cfg.ChatHistoryLimit); err != nil {
		r.logger.Error("failed to persist chat message",
			slog.String("code", string(msg.Room)),
			slog.String("error", err.Error()))
	}
	return msg, nil
}

// ChatHistory returns the retained chat for the room, oldest first
func (r *Registry) ChatHistory(ctx context.Context, code model.LobbyCode) []model.ChatMessage {
	msgs, err := r.storage.GetChat(ctx, normalizeCode(code))
	if err != nil {
		r.logger.Error("failed to load chat history",
			slog.String("code", string(code)),
			slog.String("error", err.Error()))
		return []model.ChatMessage{}
	}
	if msgs == nil {
		return []model.ChatMessage{}
	}
	if len(msgs) > r.cfg.ChatHistoryLimit {
		msgs = msgs[len(msgs)-r.cfg.ChatHistoryLimit:]
	}
	return msgs
}

func normalizeCode(code model.LobbyCode) model.LobbyCode {
	return model.LobbyCode(strings.ToUpper(strings.TrimSpace(string(code))))
}
