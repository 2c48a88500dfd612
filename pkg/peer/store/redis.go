package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/robotalks/winot.go/pkg/bridge"
)

// DefaultRedisPrefix namespaces emulator keys in Redis.
const DefaultRedisPrefix = "winot:"

const scanBatch = 100

// RedisStore keeps JSON encoded values in Redis.
type RedisStore struct {
	Prefix string

	client *redis.Client
}

// NewRedisStore creates a RedisStore connecting to addr.
func NewRedisStore(addr string) *RedisStore {
	return NewRedisStoreWith(redis.NewClient(&redis.Options{Addr: addr}))
}

// NewRedisStoreWith creates a RedisStore with an existing client.
func NewRedisStoreWith(client *redis.Client) *RedisStore {
	return &RedisStore{Prefix: DefaultRedisPrefix, client: client}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, key string) (bridge.Value, bool, error) {
	data, err := r.client.Get(ctx, r.Prefix+key).Bytes()
	if err == redis.Nil {
		return bridge.Value{}, false, nil
	}
	if err != nil {
		return bridge.Value{}, false, err
	}
	var v bridge.Value
	if err = json.Unmarshal(data, &v); err != nil {
		return bridge.Value{}, false, err
	}
	return v, true, nil
}

// Set implements Store.
func (r *RedisStore) Set(ctx context.Context, key string, v bridge.Value) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.Prefix+key, data, 0).Err()
}

// Delete implements Store.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.Prefix+key).Err()
}

// DeleteTree implements Store.
func (r *RedisStore) DeleteTree(ctx context.Context, tree string) (int, error) {
	var (
		cursor uint64
		count  int
	)
	pattern := r.treePattern(tree)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return count, err
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			count += int(n)
			if err != nil {
				return count, err
			}
		}
		if cursor = next; cursor == 0 {
			return count, nil
		}
	}
}

// Close closes the Redis client.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func (r *RedisStore) treePattern(tree string) string {
	return escapeGlob(r.Prefix+Join(tree, "")) + "*"
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
