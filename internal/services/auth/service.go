package auth

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/ledger"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrInvalidUsername    = errors.New("username must be 3-20 letters, digits or underscores")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

// Session represents an authenticated session
type Session struct {
	Token     string
	Username  string
	IsAdmin   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles signup, login and session management
type Service struct {
	ledger *ledger.Ledger
	clock  clock.Clock
	cfg    Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration

	// AdminUsernames are granted admin rights at signup
	AdminUsernames []string
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
	}
}

// New creates a new auth Service
func New(ledger *ledger.Ledger, clock clock.Clock, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		ledger:   ledger,
		clock:    clock,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Register creates an account with the starting balance and opens a session
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if !validUsername(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}
	if s.ledger.Exists(username) {
		return nil, model.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := model.NewUser(username, string(hash), s.clock.Now())
	user.IsAdmin = slices.Contains(s.cfg.AdminUsernames, username)

	if err := s.ledger.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.createSession(user), nil
}

// Login authenticates a user and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.ledger.Get(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.createSession(user), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// createSession creates a new session for a user
func (s *Service) createSession(user *model.User) *Session {
	now := s.clock.Now()
	session := &Session{
		Token:     "sess_" + uuid.NewString(),
		Username:  user.Username,
		IsAdmin:   user.IsAdmin,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() int {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func validUsername(name string) bool {
	if len(name) < 3 || len(name) > 20 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		default:
			return false
		}
	}
	return true
}
