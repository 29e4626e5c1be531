package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	users           map[string]*model.User
	records         map[string]*model.ContentRecord
	chat            map[model.LobbyCode][]model.ChatMessage
	dictionaryWords []string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:   make(map[string]*model.User),
		records: make(map[string]*model.ContentRecord),
		chat:    make(map[model.LobbyCode][]model.ChatMessage),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.Username] = user.Clone()
	return nil
}

func (s *Storage) GetUser(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return user.Clone(), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u.Clone())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// Content record operations

func (s *Storage) SaveContentRecord(ctx context.Context, record *model.ContentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := *record
	s.records[record.ContentID] = &r
	return nil
}

func (s *Storage) GetContentRecord(ctx context.Context, contentID string) (*model.ContentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[contentID]
	if !ok {
		return nil, model.ErrRecordNotFound
	}
	r := *record
	return &r, nil
}

// Chat operations

func (s *Storage) AppendChat(ctx context.Context, msg model.ChatMessage, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	log := append(s.chat[msg.Room], msg)
	if max > 0 && len(log) > max {
		log = slices.Clone(log[len(log)-max:])
	}
	s.chat[msg.Room] = log
	return nil
}

func (s *Storage) GetChat(ctx context.Context, room model.LobbyCode) ([]model.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.chat[room]), nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dictionaryWords == nil {
		return nil, model.ErrDictionaryNotLoaded
	}
	return slices.Clone(s.dictionaryWords), nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dictionaryWords = slices.Clone(words)
	if s.dictionaryWords == nil {
		s.dictionaryWords = []string{}
	}
	return nil
}

// Ping always succeeds for memory storage
func (s *Storage) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}
