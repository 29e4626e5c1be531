package lobby

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/dependencies/mocks"
	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage/memory"
	"github.com/sqrrr/gamehub/internal/testutil"
)

type RegistrySuite struct {
	suite.Suite
	storage  *memory.Storage
	clock    *mocks.MockClock
	random   *mocks.MockRandom
	registry *Registry
	ctx      context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()
	s.registry = New(s.storage, s.clock, s.random, testutil.NopLogger(), DefaultConfig())
	s.ctx = context.Background()
}

func (s *RegistrySuite) player(conn string) *model.LobbyPlayer {
	return &model.LobbyPlayer{ConnID: model.ConnID(conn), Name: "Player " + conn}
}

func (s *RegistrySuite) TestSharedLobbyExistsFromStart() {
	room := s.registry.Shared()
	s.Require().NotNil(room)
	s.Equal(model.SharedLobbyCode, room.Code())
	s.Equal([]model.LobbyCode{model.SharedLobbyCode}, s.registry.Codes())
}

func (s *RegistrySuite) TestCreateAssignsFreshCode() {
	s.random.QueueString("ABCD", "ABCD", "", "WXYZ")

	first, err := s.registry.Create()
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("ABCD"), first.Code())

	second, err := s.registry.Create()
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("WXYZ"), second.Code())
	s.Equal(3, s.registry.Len())
}

func (s *RegistrySuite) TestCreateGivesUpWhenNoCodeIsFree() {
	_, err := s.registry.Create()
	s.ErrorIs(err, ErrCodeSpaceExhausted)
}

func (s *RegistrySuite) TestGetIsCaseInsensitive() {
	s.random.QueueString("ABCD")
	_, err := s.registry.Create()
	s.Require().NoError(err)

	room, err := s.registry.Get(" abcd ")
	s.Require().NoError(err)
	s.Equal(model.LobbyCode("ABCD"), room.Code())

	_, err = s.registry.Get("NOPE")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *RegistrySuite) TestJoinResetsRoundFlags() {
	p := s.player("c1")
	p.UsedHintThisRound = true
	p.VotedExtend = true

	room, err := s.registry.Join(model.SharedLobbyCode, p)
	s.Require().NoError(err)

	_ = room.Do(func(l *model.Lobby) error {
		s.Require().Contains(l.Players, model.ConnID("c1"))
		joined := l.Players["c1"]
		s.False(joined.UsedHintThisRound)
		s.False(joined.VotedExtend)
		s.NotNil(joined.Guessed)
		s.Equal(s.clock.Now(), joined.JoinedAt)
		return nil
	})
}

func (s *RegistrySuite) TestJoinTwiceIsRejected() {
	_, err := s.registry.Join(model.SharedLobbyCode, s.player("c1"))
	s.Require().NoError(err)
	_, err = s.registry.Join(model.SharedLobbyCode, s.player("c1"))
	s.ErrorIs(err, model.ErrAlreadyInLobby)
}

func (s *RegistrySuite) TestJoinUnknownLobby() {
	_, err := s.registry.Join("ZZZZ", s.player("c1"))
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *RegistrySuite) TestLastLeaveRemovesLobby() {
	s.random.QueueString("ABCD")
	room, err := s.registry.Create()
	s.Require().NoError(err)
	_, _ = s.registry.Join("ABCD", s.player("c1"))
	_, _ = s.registry.Join("ABCD", s.player("c2"))

	left, err := s.registry.Leave("ABCD", "c1")
	s.Require().NoError(err)
	s.False(left.Closed())

	left, err = s.registry.Leave("ABCD", "c2")
	s.Require().NoError(err)
	s.True(left.Closed())
	s.Same(room, left)

	_, err = s.registry.Get("ABCD")
	s.ErrorIs(err, model.ErrLobbyNotFound)
	_, err = s.registry.Join("ABCD", s.player("c3"))
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *RegistrySuite) TestSharedLobbyPersistsWhenEmpty() {
	_, _ = s.registry.Join(model.SharedLobbyCode, s.player("c1"))
	room, err := s.registry.Leave(model.SharedLobbyCode, "c1")
	s.Require().NoError(err)
	s.False(room.Closed())
	s.NotNil(s.registry.Shared())
}

func (s *RegistrySuite) TestLeaveWhenNotSeated() {
	_, err := s.registry.Leave(model.SharedLobbyCode, "ghost")
	s.ErrorIs(err, model.ErrNotInLobby)
}

func (s *RegistrySuite) TestConcurrentJoinsAreSerialized() {
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.registry.Join(model.SharedLobbyCode, s.player(fmt.Sprintf("c%d", i)))
			s.NoError(err)
		}(i)
	}
	wg.Wait()

	_ = s.registry.Shared().Do(func(l *model.Lobby) error {
		s.Len(l.Players, 50)
		return nil
	})
}

func (s *RegistrySuite) TestChatIsCappedAndTrimmed() {
	s.registry = New(s.storage, s.clock, s.random, testutil.NopLogger(), Config{ChatHistoryLimit: 3, MaxChatLength: 5})

	for i := 0; i < 5; i++ {
		_, err := s.registry.AppendChat(s.ctx, model.SharedLobbyCode, "ann", fmt.Sprintf("m%d", i))
		s.Require().NoError(err)
	}
	msg, err := s.registry.AppendChat(s.ctx, model.SharedLobbyCode, "ann", "  "+strings.Repeat("x", 10)+"  ")
	s.Require().NoError(err)
	s.Equal("xxxxx", msg.Text)

	history := s.registry.ChatHistory(s.ctx, model.SharedLobbyCode)
	s.Require().Len(history, 3)
	s.Equal("m3", history[0].Text)
	s.Equal("xxxxx", history[2].Text)
}

func (s *RegistrySuite) TestChatRejectsBlankAndUnknownRoom() {
	_, err := s.registry.AppendChat(s.ctx, model.SharedLobbyCode, "ann", "   ")
	s.ErrorIs(err, model.ErrInvalidAction)

	_, err = s.registry.AppendChat(s.ctx, "ZZZZ", "ann", "hi")
	s.ErrorIs(err, model.ErrLobbyNotFound)
}

func (s *RegistrySuite) TestChatHistoryEmptyRoom() {
	history := s.registry.ChatHistory(s.ctx, model.SharedLobbyCode)
	s.NotNil(history)
	s.Empty(history)
}
