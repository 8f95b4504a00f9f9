package chat

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// ReadMarkPrefix is the Redis key prefix for persisted read marks.
	ReadMarkPrefix = "chat:read:"

	// ReadMarkTTL bounds how long a persisted read mark lives. Rooms a user
	// has not touched in this long revert to the unread default.
	ReadMarkTTL = 30 * 24 * time.Hour

	// redisOpTimeout caps each Redis round trip so the synchronous IsRead
	// contract stays cheap even when Redis is unhealthy.
	redisOpTimeout = 2 * time.Second
)

// RedisSnapshots persists read marks in Redis so a restarted client keeps
// them, with an in-memory mirror it fails open to on Redis errors.
//
//	Key:   chat:read:<scope>:<roomID>
//	Value: "1" (read) / "0" (unread)
type RedisSnapshots struct {
	client *redis.Client
	scope  string // namespaces keys per user
	local  *MemorySnapshots
}

// NewRedisSnapshots creates a Redis-backed snapshot store. scope should
// identify the current user so read marks are not shared across accounts.
func NewRedisSnapshots(client *redis.Client, scope string) *RedisSnapshots {
	return &RedisSnapshots{
		client: client,
		scope:  scope,
		local:  NewMemorySnapshots(),
	}
}

func (s *RedisSnapshots) key(roomID int64) string {
	return ReadMarkPrefix + s.scope + ":" + strconv.FormatInt(roomID, 10)
}

func (s *RedisSnapshots) Get(roomID int64) bool {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return s.local.Get(roomID)
	}
	if err != nil {
		log.Printf("[chat] redis read mark get: %v", err)
		return s.local.Get(roomID)
	}
	read := val == "1"
	// Keep the mirror coherent for later fail-open reads.
	s.local.Set(roomID, read)
	return read
}

func (s *RedisSnapshots) Set(roomID int64, read bool) {
	s.local.Set(roomID, read)

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val := "0"
	if read {
		val = "1"
	}
	if err := s.client.Set(ctx, s.key(roomID), val, ReadMarkTTL).Err(); err != nil {
		log.Printf("[chat] redis read mark set: %v", err)
	}
}
