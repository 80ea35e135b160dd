package directory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/model"
)

// Fingerprint is the cache identity of an API key; raw secrets never reach Redis.
func Fingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// cacheEntry omits the key for host resolutions; a zero APIKey has no valid status to encode.
type cacheEntry struct {
	Epoch int64         `json:"epoch"`
	Store model.Store   `json:"store"`
	Key   *model.APIKey `json:"key,omitempty"`
}

// RedisCache stores resolutions as JSON, indexed per store. Every invalidation
// bumps a shared epoch; entries written under an older epoch read as misses,
// so a lookup racing an invalidation cannot resurrect a revoked resolution.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: "storefront:directory:", ttl: ttl}
}

func (c *RedisCache) entryKey(key string) string { return c.prefix + "entry:" + key }

func (c *RedisCache) epochKey() string { return c.prefix + "epoch" }

func (c *RedisCache) indexKey(storeID int64) string {
	return fmt.Sprintf("%sstore:%d", c.prefix, storeID)
}

func (c *RedisCache) Epoch(ctx context.Context) (int64, error) {
	n, err := c.client.Get(ctx, c.epochKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *RedisCache) Get(ctx context.Context, key string) (Resolution, bool, error) {
	vals, err := c.client.MGet(ctx, c.entryKey(key), c.epochKey()).Result()
	if err != nil {
		return Resolution{}, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return Resolution{}, false, nil
	}
	var current int64
	if s, ok := vals[1].(string); ok {
		if current, err = strconv.ParseInt(s, 10, 64); err != nil {
			return Resolution{}, false, err
		}
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return Resolution{}, false, err
	}
	if entry.Epoch != current {
		return Resolution{}, false, nil
	}
	res := Resolution{Store: entry.Store}
	if entry.Key != nil {
		res.Key = *entry.Key
	}
	return res, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, res Resolution, epoch int64) error {
	entry := cacheEntry{Epoch: epoch, Store: res.Store}
	if res.Key.ID != 0 {
		k := res.Key
		entry.Key = &k
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	index := c.indexKey(res.Store.ID)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.entryKey(key), raw, c.ttl)
		pipe.SAdd(ctx, index, c.entryKey(key))
		pipe.Expire(ctx, index, c.ttl)
		return nil
	})
	return err
}

func (c *RedisCache) InvalidateStore(ctx context.Context, storeID int64) error {
	if err := c.client.Incr(ctx, c.epochKey()).Err(); err != nil {
		return err
	}
	index := c.indexKey(storeID)
	members, err := c.client.SMembers(ctx, index).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return c.client.Del(ctx, append(members, index)...).Err()
}
