package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/sqrrr/gamehub/internal/model"
	"github.com/sqrrr/gamehub/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping checks the connection
func (s *Storage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) SaveUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, userKey(user.Username), data, 0)
	pipe.SAdd(ctx, usersIndexKey(), user.Username)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetUser(ctx context.Context, username string) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	usernames, err := s.client.SMembers(ctx, usersIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(usernames) == 0 {
		return []*model.User{}, nil
	}
	sort.Strings(usernames)

	keys := make([]string, len(usernames))
	for i, name := range usernames {
		keys[i] = userKey(name)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*model.User, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue
		}
		var user model.User
		if err := json.Unmarshal([]byte(str), &user); err != nil {
			continue // Skip invalid data
		}
		users = append(users, &user)
	}
	return users, nil
}

// Content record operations

func (s *Storage) SaveContentRecord(ctx context.Context, record *model.ContentRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, recordKey(record.ContentID), data, 0).Err()
}

func (s *Storage) GetContentRecord(ctx context.Context, contentID string) (*model.ContentRecord, error) {
	data, err := s.client.Get(ctx, recordKey(contentID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRecordNotFound
		}
		return nil, err
	}

	var record model.ContentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Chat operations

func (s *Storage) AppendChat(ctx context.Context, msg model.ChatMessage, max int) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := chatKey(msg.Room)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if max > 0 {
		pipe.LTrim(ctx, key, int64(-max), -1)
	}
	if s.cfg.ChatTTL > 0 {
		pipe.Expire(ctx, key, s.cfg.ChatTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetChat(ctx context.Context, room model.LobbyCode) ([]model.ChatMessage, error) {
	values, err := s.client.LRange(ctx, chatKey(room), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]model.ChatMessage, 0, len(values))
	for _, val := range values {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(val), &msg); err != nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// Dictionary operations

func (s *Storage) GetDictionaryWords(ctx context.Context) ([]string, error) {
	key := dictionaryKey()

	// Check if dictionary exists
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, model.ErrDictionaryNotLoaded
	}

	words, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	// Sets are unordered; the daily word index depends on a stable order
	sort.Strings(words)
	return words, nil
}

func (s *Storage) SaveDictionaryWords(ctx context.Context, words []string) error {
	key := dictionaryKey()

	// Delete existing dictionary and add new words atomically
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)

	if len(words) > 0 {
		members := make([]interface{}, len(words))
		for i, w := range words {
			members[i] = w
		}
		pipe.SAdd(ctx, key, members...)
	}

	_, err := pipe.Exec(ctx)
	return err
}
