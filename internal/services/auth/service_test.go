package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/dependencies/mocks"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/services/ledger"
	"github.com/sqrrr/gamehub/internal/storage/memory"
	"github.com/sqrrr/gamehub/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ledger  *ledger.Ledger
	clock   *mocks.MockClock
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.ledger = ledger.New(memory.New(), s.clock, testutil.NopLogger())
	cfg := DefaultConfig()
	cfg.AdminUsernames = []string{"root_admin"}
	s.service = New(s.ledger, s.clock, cfg)
	s.ctx = context.Background()
}

// Register tests

func (s *ServiceSuite) TestRegisterSucceeds() {
	session, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	s.NotEmpty(session.Token)
	s.Equal("alice", session.Username)
	s.False(session.IsAdmin)
}

func (s *ServiceSuite) TestRegisterGrantsStartingBalance() {
	_, err := s.service.Register(s.ctx, "alice", "password123")
	s.Require().NoError(err)

	user, err := s.ledger.Get("alice")
	s.Require().NoError(err)
	s.Equal(int64(1000), user.Coins)
	s.Zero(user.Debt)
	s.NotEqual("password123", user.PasswordHash)
}

func (s *ServiceSuite) TestRegisterFailsIfUsernameExists() {
	_, _ = s.service.Register(s.ctx, "alice", "password123")

	_, err := s.service.Register(s.ctx, "alice", "different1")
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ServiceSuite) TestRegisterValidatesInput() {
	_, err := s.service.Register(s.ctx, "a!", "password123")
	s.ErrorIs(err, ErrInvalidUsername)

	_, err = s.service.Register(s.ctx, "alice", "123")
	s.ErrorIs(err, ErrWeakPassword)
}

func (s *ServiceSuite) TestRegisterMarksConfiguredAdmins() {
	session, err := s.service.Register(s.ctx, "root_admin", "password123")
	s.Require().NoError(err)
	s.True(session.IsAdmin)

	user, _ := s.ledger.Get("root_admin")
	s.True(user.IsAdmin)
}

// Login tests

func (s *ServiceSuite) TestLoginSucceeds() {
	_, _ = s.service.Register(s.ctx, "alice", "password123")

	session, err := s.service.Login(s.ctx, "alice", "password123")
	s.Require().NoError(err)
	s.Equal("alice", session.Username)
}

func (s *ServiceSuite) TestLoginFailsWithWrongPassword() {
	_, _ = s.service.Register(s.ctx, "alice", "password123")

	_, err := s.service.Login(s.ctx, "alice", "wrongpassword")
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServiceSuite) TestLoginFailsWithUnknownUser() {
	_, err := s.service.Login(s.ctx, "nobody", "password123")
	s.ErrorIs(err, ErrInvalidCredentials)
}

// Session tests

func (s *ServiceSuite) TestValidateSessionSucceeds() {
	session, _ := s.service.Register(s.ctx, "alice", "password123")

	validated, err := s.service.ValidateSession(session.Token)
	s.Require().NoError(err)
	s.Equal("alice", validated.Username)
}

func (s *ServiceSuite) TestValidateSessionFailsWithInvalidToken() {
	_, err := s.service.ValidateSession("invalid-token")
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestValidateSessionFailsWhenExpired() {
	session, _ := s.service.Register(s.ctx, "alice", "password123")

	s.clock.Advance(25 * time.Hour)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestInvalidateSessionRemovesSession() {
	session, _ := s.service.Register(s.ctx, "alice", "password123")

	s.service.InvalidateSession(session.Token)

	_, err := s.service.ValidateSession(session.Token)
	s.ErrorIs(err, ErrInvalidSession)
}

func (s *ServiceSuite) TestCleanExpiredSessionsRemovesExpired() {
	old, _ := s.service.Register(s.ctx, "alice", "password123")
	s.clock.Advance(23 * time.Hour)
	fresh, _ := s.service.Login(s.ctx, "alice", "password123")
	s.clock.Advance(2 * time.Hour)

	s.Equal(1, s.service.CleanExpiredSessions())

	_, err := s.service.ValidateSession(old.Token)
	s.ErrorIs(err, ErrInvalidSession)
	_, err = s.service.ValidateSession(fresh.Token)
	s.NoError(err)
}
