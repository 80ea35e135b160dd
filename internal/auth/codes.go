package auth

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// CodeStore keeps short-lived one-time secrets (OTP codes, reset tokens).
// Consume succeeds at most once per Put. After maxAttempts wrong guesses the
// code is dropped so it cannot be brute forced within its TTL.
type CodeStore interface {
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Consume(ctx context.Context, key, value string, maxAttempts int) (bool, error)
}

// consumeScript compares and deletes in one round trip so two verifies of the
// same code cannot both succeed.
var consumeScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return 0
end
if v == ARGV[1] then
	redis.call('DEL', KEYS[1], KEYS[2])
	return 1
end
local n = redis.call('INCR', KEYS[2])
local ttl = redis.call('PTTL', KEYS[1])
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
end
if n >= tonumber(ARGV[2]) then
	redis.call('DEL', KEYS[1], KEYS[2])
end
return 0
`)

type RedisCodes struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCodes(client redis.UniversalClient) *RedisCodes {
	return &RedisCodes{client: client, prefix: "storefront:codes:"}
}

func (c *RedisCodes) codeKey(key string) string     { return c.prefix + key }
func (c *RedisCodes) attemptsKey(key string) string { return c.prefix + key + ":attempts" }

// Put replaces any pending code for key and resets its attempt counter.
func (c *RedisCodes) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.codeKey(key), value, ttl)
		pipe.Del(ctx, c.attemptsKey(key))
		return nil
	})
	return err
}

func (c *RedisCodes) Consume(ctx context.Context, key, value string, maxAttempts int) (bool, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	n, err := consumeScript.Run(ctx, c.client, []string{c.codeKey(key), c.attemptsKey(key)}, value, maxAttempts).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
