package redis

import (
	"fmt"

	"github.com/sqrrr/gamehub/internal/model"
)

// Key prefix for all hub data
const keyPrefix = "sqrrr"

// userKey returns the Redis key for a User
func userKey(username string) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, username)
}

// usersIndexKey returns the Redis key for the SET of all usernames
func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}

// recordKey returns the Redis key for a content record
func recordKey(contentID string) string {
	return fmt.Sprintf("%s:record:%s", keyPrefix, contentID)
}

// chatKey returns the Redis key for a room's chat LIST
func chatKey(room model.LobbyCode) string {
	return fmt.Sprintf("%s:chat:%s", keyPrefix, room)
}

// dictionaryKey returns the Redis key for the dictionary word set
func dictionaryKey() string {
	return fmt.Sprintf("%s:dictionary", keyPrefix)
}
