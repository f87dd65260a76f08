package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the key holding the document when none is configured.
const DefaultRedisKey = "readlater:reading-list"

// RedisStore keeps the whole JSON document under a single Redis key.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key}
}

// Load reads the document. A missing key is an empty list.
func (s *RedisStore) Load(ctx context.Context) (*ReadingList, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return &ReadingList{Pending: []string{}, Finished: []string{}}, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", s.key, err)
	}

	var list ReadingList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.key, err)
	}
	return &list, nil
}

// Save overwrites the key with the full document.
func (s *RedisStore) Save(ctx context.Context, list *ReadingList) error {
	data, err := json.Marshal(list)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", s.key, err)
	}
	return nil
}

var _ Backend = &RedisStore{}
