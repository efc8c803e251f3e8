package ratelimit

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/natalplan/auth-service/internal/config"
)

// RedisStore runs the point-budget transition as a Lua script so the
// read-advance-write cycle is atomic on the server. Concurrent consumers of
// the same identifier therefore never double-spend a point.
type RedisStore struct {
	rdb    *redis.Client
	script *redis.Script
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb: rdb,
		script: redis.NewScript(`
		local key = KEYS[1]
		local now_ms = tonumber(ARGV[1])
		local points = tonumber(ARGV[2])
		local window_ms = tonumber(ARGV[3])
		local block_ms = tonumber(ARGV[4])
		local ttl_seconds = tonumber(ARGV[5])

		local state = redis.call('HMGET', key, 'used', 'window_start_ms', 'blocked_until_ms')
		local used = tonumber(state[1])
		local window_start = tonumber(state[2])
		local blocked_until = tonumber(state[3])

		if blocked_until ~= nil and blocked_until > now_ms then
			return { 0, 0, blocked_until - now_ms }
		end

		if window_start == nil or (now_ms - window_start) >= window_ms then
			used = 0
			window_start = now_ms
			blocked_until = 0
		end

		used = used + 1

		local allowed = 1
		local remaining = points - used
		local reset_ms = window_start + window_ms - now_ms
		if used > points then
			allowed = 0
			remaining = 0
			blocked_until = now_ms + block_ms
			reset_ms = block_ms
		end

		redis.call('HMSET', key, 'used', used, 'window_start_ms', window_start, 'blocked_until_ms', blocked_until or 0)
		redis.call('EXPIRE', key, ttl_seconds)

		return { allowed, remaining, reset_ms }
	`),
	}
}

// Consume runs the script for the key. Any transport or script error is
// returned so the supervisor can demote to the in-process store.
func (s *RedisStore) Consume(ctx context.Context, key string, rule config.LimiterRule) (Result, error) {
	ttl := int64((rule.Window + rule.Block).Seconds()) + 1
	vals, err := s.script.Run(ctx, s.rdb, []string{key},
		nowMs(), rule.Points, rule.Window.Milliseconds(), rule.Block.Milliseconds(), ttl).Result()
	if err != nil {
		return Result{}, err
	}
	arr, ok := vals.([]interface{})
	if !ok || len(arr) != 3 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script result %#v", vals)
	}
	return Result{
		Allowed:   asInt64(arr[0]) == 1,
		Remaining: asInt64(arr[1]),
		ResetMs:   asInt64(arr[2]),
	}, nil
}

// Ping reports whether the shared store is reachable again.
func (s *RedisStore) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int32:
		return int64(t)
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
