package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/supchat-io/notifyhub/internal/types"
)

// Lua keeps the scoped counter and the total in step under concurrent
// callers. KEYS[1] is the scoped counter, KEYS[2] the user total.

// incrScript adds ARGV[1] to both keys.
var incrScript = redis.NewScript(`
  redis.call('INCRBY', KEYS[1], ARGV[1])
  return redis.call('INCRBY', KEYS[2], ARGV[1])
`)

// decrScript removes up to ARGV[1] from the scoped counter, clamped at
// zero, mirrors the removal on the total and returns the amount taken.
var decrScript = redis.NewScript(`
  local v = tonumber(redis.call('GET', KEYS[1])) or 0
  local take = tonumber(ARGV[1])
  if take > v then take = v end
  if take > 0 then
    redis.call('DECRBY', KEYS[1], take)
    local t = tonumber(redis.call('GET', KEYS[2])) or 0
    if take >= t then
      redis.call('SET', KEYS[2], 0)
    else
      redis.call('DECRBY', KEYS[2], take)
    end
  end
  return take
`)

// resetScript zeroes the scoped counter and returns its prior value,
// removing the same amount from the total.
var resetScript = redis.NewScript(`
  local v = tonumber(redis.call('GET', KEYS[1])) or 0
  if v > 0 then
    redis.call('DEL', KEYS[1])
    local t = tonumber(redis.call('GET', KEYS[2])) or 0
    if v >= t then
      redis.call('SET', KEYS[2], 0)
    else
      redis.call('DECRBY', KEYS[2], v)
    end
  end
  return v
`)

// RedisStore is a Store backed by a shared Redis instance, for
// deployments running more than one server process.
type RedisStore struct {
	rdb redis.UniversalClient
}

func NewRedisStore(rdb redis.UniversalClient) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Increment(ctx context.Context, userId string, scope types.Scope, scopeId string, delta int64) error {
	if delta <= 0 {
		return nil
	}

	keys := []string{scopedKey(userId, scope, scopeId), totalKey(userId)}
	if err := incrScript.Run(ctx, s.rdb, keys, delta).Err(); err != nil {
		return fmt.Errorf("incr %s: %w", keys[0], err)
	}

	return nil
}

func (s *RedisStore) Decrement(ctx context.Context, userId string, scope types.Scope, scopeId string, delta int64) (int64, error) {
	if delta <= 0 {
		return 0, nil
	}

	keys := []string{scopedKey(userId, scope, scopeId), totalKey(userId)}
	taken, err := decrScript.Run(ctx, s.rdb, keys, delta).Int64()
	if err != nil {
		return 0, fmt.Errorf("decr %s: %w", keys[0], err)
	}

	return taken, nil
}

func (s *RedisStore) Reset(ctx context.Context, userId string, scope types.Scope, scopeId string) (int64, error) {
	keys := []string{scopedKey(userId, scope, scopeId), totalKey(userId)}
	prev, err := resetScript.Run(ctx, s.rdb, keys).Int64()
	if err != nil {
		return 0, fmt.Errorf("reset %s: %w", keys[0], err)
	}

	return prev, nil
}

func (s *RedisStore) Get(ctx context.Context, userId string, scope types.Scope, scopeId string) (int64, error) {
	count, err := s.rdb.Get(ctx, scopedKey(userId, scope, scopeId)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter: %w", err)
	}

	return count, nil
}

func (s *RedisStore) Total(ctx context.Context, userId string) (int64, error) {
	total, err := s.rdb.Get(ctx, totalKey(userId)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get total: %w", err)
	}

	return total, nil
}

func (s *RedisStore) SumScopes(ctx context.Context, userId string) (int64, error) {
	var sum int64
	for _, scope := range []types.Scope{types.ScopeChannel, types.ScopeConversation} {
		pattern := scopedKey(userId, scope, "*")
		iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			count, err := s.rdb.Get(ctx, iter.Val()).Int64()
			if err != nil && err != redis.Nil {
				return 0, fmt.Errorf("get %s: %w", iter.Val(), err)
			}
			sum += count
		}
		if err := iter.Err(); err != nil {
			return 0, fmt.Errorf("scan %s: %w", pattern, err)
		}
	}

	return sum, nil
}
