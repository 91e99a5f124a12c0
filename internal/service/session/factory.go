package session

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
)

const (
	keyPrefix  = "chat_session:"
	defaultTTL = 24 * time.Hour
)

// NewStore creates a Store of the given type.
// For Redis, requires WithRedisClient option.
func NewStore(storeType StoreType, opts ...StoreOption) (Store, error) {
	config := &storeConfig{}
	for _, opt := range opts {
		opt(config)
	}

	switch storeType {
	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeRedis:
		if config.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return NewRedisStore(config.redisClient, config.redisTTL), nil

	default:
		return nil, ErrInvalidStoreType
	}
}

// MemoryStore implements Store using an in-memory map.
type MemoryStore struct {
	mu    sync.RWMutex
	state map[string]map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: make(map[string]map[string]string)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, conversationID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.state[conversationID][key]
	return value, ok, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, conversationID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, ok := s.state[conversationID]
	if !ok {
		values = make(map[string]string)
		s.state[conversationID] = values
	}
	values[key] = value
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state, conversationID)
	return nil
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = make(map[string]map[string]string)
	return nil
}

// RedisStore implements Store with one Redis hash per conversation.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed store. A non-positive ttl uses 24h.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get implements Store. Refreshes the TTL on every hit.
func (s *RedisStore) Get(ctx context.Context, conversationID, key string) (string, bool, error) {
	hashKey := s.key(conversationID)
	value, err := s.client.HGet(ctx, hashKey, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	if err := s.client.Expire(ctx, hashKey, s.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("component", "session").Str("conversation_id", conversationID).Msg("failed to refresh session ttl")
	}

	return value, true, nil
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, conversationID, key, value string) error {
	hashKey := s.key(conversationID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey, key, value)
		pipe.Expire(ctx, hashKey, s.ttl)
		return nil
	})
	return err
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, s.key(conversationID)).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(conversationID string) string {
	return keyPrefix + conversationID
}
