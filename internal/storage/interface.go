package storage

import (
	"context"

	"github.com/sqrrr/gamehub/internal/model"
)

// Storage defines the interface for durable state.
// The in-memory ledger and registries are authoritative; storage is catch-up.
type Storage interface {
	// User operations
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)

	// Content record operations
	SaveContentRecord(ctx context.Context, record *model.ContentRecord) error
	GetContentRecord(ctx context.Context, contentID string) (*model.ContentRecord, error)

	// Chat operations. AppendChat trims the room log to the newest max entries.
	AppendChat(ctx context.Context, msg model.ChatMessage, max int) error
	GetChat(ctx context.Context, room model.LobbyCode) ([]model.ChatMessage, error)

	// Dictionary operations
	GetDictionaryWords(ctx context.Context) ([]string, error)
	SaveDictionaryWords(ctx context.Context, words []string) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error
	Close() error
}
