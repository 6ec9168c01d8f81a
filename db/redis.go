package db

import (
	"context"
	"log"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// RedisKV is a KV backed by a remote Redis server.
type RedisKV struct {
	cfg    Config
	client *redis.Client
}

// InitRedisKV connects to the Redis server described by cfg and returns
// a pointer to the resulting RedisKV. If the server cannot be reached,
// returns an error.
func InitRedisKV(ctx context.Context, cfg Config) (*RedisKV, error) {
	dbNum, err := strconv.Atoi(cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	log.Printf("Connecting to Redis at %s ...", cfg.RedisAddr)
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       dbNum,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &RedisKV{cfg: cfg, client: client}, nil
}

// Get returns the value stored under key, or ErrNoRecord.
func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNoRecord
	}
	return val, err
}

// GetByPrefix scans the keyspace for keys starting with prefix and
// fetches their values in one round trip.
func (r *RedisKV) GetByPrefix(ctx context.Context, prefix string) (map[string]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	result := make(map[string]string)
	if len(keys) == 0 {
		return result, nil
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, val := range vals {
		// A key deleted between the scan and the fetch comes back nil.
		if s, ok := val.(string); ok {
			result[keys[i]] = s
		}
	}
	return result, nil
}

// Set stores value under key.
func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}
