//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/sqrrr/gamehub/internal/storage/storagetest"
)

// Run with: SQRRR_TEST_POSTGRES_DSN=postgres://... go test -tags integration ./internal/storage/postgres
type StorageSuite struct {
	storagetest.Suite
	storage *Storage
}

func TestStorageSuite(t *testing.T) {
	if os.Getenv("SQRRR_TEST_POSTGRES_DSN") == "" {
		t.Skip("SQRRR_TEST_POSTGRES_DSN not set")
	}
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.Ctx = context.Background()

	cfg := DefaultConfig()
	cfg.DSN = os.Getenv("SQRRR_TEST_POSTGRES_DSN")

	storage, err := New(s.Ctx, cfg)
	s.Require().NoError(err)
	s.storage = storage
	s.Storage = storage

	_, err = storage.pool.Exec(s.Ctx, `TRUNCATE users, content_records, chat_messages, dictionary_words`)
	s.Require().NoError(err)
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
}
