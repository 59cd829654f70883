package caching

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// KVStore is the async, non-transactional key-value contract the rest of the
// system builds on: get returns the stored JSON document or a miss, set
// overwrites unconditionally. There is no compare-and-swap; callers that need
// read-modify-write semantics layer retries on top (see repositories).
type KVStore interface {
	// GetJSON unmarshals the document at key into dest. The bool is false on
	// a miss (dest untouched).
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}) error

	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key string, value string) error

	Delete(ctx context.Context, key string) error

	// Keys lists keys matching a glob pattern (used by the reminder job and
	// per-agent ownership lookups).
	Keys(ctx context.Context, pattern string) ([]string, error)

	Ping(ctx context.Context) error
}

type redisKVStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisKVStore connects a go-redis client. Accepts either a bare
// host:port or a redis://host:port URL.
func NewRedisKVStore(addr, password string, db int, logger *zap.Logger) KVStore {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
			parsedAddr = hostPort
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		logger.Warn("redis ping failed on initialization",
			zap.String("addr", parsedAddr),
			zap.Error(pingErr))
	} else {
		logger.Debug("redis connection established", zap.String("addr", parsedAddr))
	}

	return &redisKVStore{client: client, logger: logger}
}

func (r *redisKVStore) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisKVStore) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, 0).Err()
}

func (r *redisKVStore) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return val, nil
}

func (r *redisKVStore) SetString(ctx context.Context, key string, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *redisKVStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisKVStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	return r.client.Keys(ctx, pattern).Result()
}

func (r *redisKVStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
