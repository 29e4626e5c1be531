// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage"
)

// Suite runs the common storage tests against the backend returned by Factory.
// Backend suites embed it and set Factory in SetupTest.
type Suite struct {
	suite.Suite
	Storage storage.Storage
	Ctx     context.Context
}

var testTime = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// User tests

func (s *Suite) TestSaveAndGetUser() {
	user := model.NewUser("alice", "hash", testTime)
	user.Coins = 750
	user.Debt = 500
	user.Cards["pixel-cat"] = 2
	user.Stats.GameHistory["vgm"] = 3
	user.DailyWord = model.DailyWordState{DayKey: "2024-01-01", Guesses: []string{"crane"}, Status: model.DailyWordPlaying}

	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	got, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(750), got.Coins)
	s.Equal(int64(500), got.Debt)
	s.Equal(2, got.Cards["pixel-cat"])
	s.Equal(3, got.Stats.GameHistory["vgm"])
	s.Equal([]string{"crane"}, got.DailyWord.Guesses)
	s.Equal("hash", got.PasswordHash)
}

func (s *Suite) TestSaveUserOverwrites() {
	user := model.NewUser("alice", "hash", testTime)
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	user.Coins = 10
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, user))

	got, err := s.Storage.GetUser(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(10), got.Coins)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestListUsers() {
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, model.NewUser("bob", "h", testTime)))
	s.Require().NoError(s.Storage.SaveUser(s.Ctx, model.NewUser("alice", "h", testTime)))

	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)

	names := []string{users[0].Username, users[1].Username}
	s.ElementsMatch([]string{"alice", "bob"}, names)
}

// Content record tests

func (s *Suite) TestSaveAndGetContentRecord() {
	record := &model.ContentRecord{
		ContentID:    "song-1",
		FastestGuess: 1500 * time.Millisecond,
		Holder:       "alice",
		TimesPlayed:  4,
	}
	s.Require().NoError(s.Storage.SaveContentRecord(s.Ctx, record))

	got, err := s.Storage.GetContentRecord(s.Ctx, "song-1")
	s.Require().NoError(err)
	s.Equal(1500*time.Millisecond, got.FastestGuess)
	s.Equal("alice", got.Holder)
	s.Equal(4, got.TimesPlayed)
}

func (s *Suite) TestGetContentRecordNotFound() {
	_, err := s.Storage.GetContentRecord(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRecordNotFound)
}

// Chat tests

func (s *Suite) TestChatIsCappedToNewest() {
	for i, text := range []string{"one", "two", "three", "four"} {
		msg := model.ChatMessage{Room: "ROOM", Name: "alice", Text: text, SentAt: testTime.Add(time.Duration(i) * time.Second)}
		s.Require().NoError(s.Storage.AppendChat(s.Ctx, msg, 3))
	}

	msgs, err := s.Storage.GetChat(s.Ctx, "ROOM")
	s.Require().NoError(err)
	s.Require().Len(msgs, 3)
	s.Equal("two", msgs[0].Text)
	s.Equal("four", msgs[2].Text)
}

func (s *Suite) TestChatIsPerRoom() {
	s.Require().NoError(s.Storage.AppendChat(s.Ctx, model.ChatMessage{Room: "AAAA", Text: "a"}, 10))
	s.Require().NoError(s.Storage.AppendChat(s.Ctx, model.ChatMessage{Room: "BBBB", Text: "b"}, 10))

	msgs, err := s.Storage.GetChat(s.Ctx, "AAAA")
	s.Require().NoError(err)
	s.Require().Len(msgs, 1)
	s.Equal("a", msgs[0].Text)

	empty, err := s.Storage.GetChat(s.Ctx, "CCCC")
	s.Require().NoError(err)
	s.Empty(empty)
}

// Dictionary tests

func (s *Suite) TestDictionaryNotLoaded() {
	_, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.ErrorIs(err, model.ErrDictionaryNotLoaded)
}

func (s *Suite) TestSaveAndGetDictionaryWords() {
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, []string{"crane", "slate", "pixel"}))

	words, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"crane", "slate", "pixel"}, words)
}

func (s *Suite) TestSaveDictionaryReplacesWords() {
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, []string{"crane"}))
	s.Require().NoError(s.Storage.SaveDictionaryWords(s.Ctx, []string{"slate"}))

	words, err := s.Storage.GetDictionaryWords(s.Ctx)
	s.Require().NoError(err)
	s.Equal([]string{"slate"}, words)
}

func (s *Suite) TestPing() {
	s.NoError(s.Storage.Ping(s.Ctx))
}
