package ratelimit

import (
	"context"
	"time"

	"github.com/natalplan/auth-service/internal/config"
)

// Result is the outcome of consuming one point from a budget. Exhaustion is
// reported through Allowed=false, never as an error.
type Result struct {
	Allowed   bool
	Remaining int64
	ResetMs   int64 // milliseconds until the caller may try again
}

// Store consumes one point for an identifier under a limiter rule. A durable
// shared store (Redis) keeps budgets consistent across processes; the
// in-process store is the single-process fallback.
type Store interface {
	Consume(ctx context.Context, key string, rule config.LimiterRule) (Result, error)
}

// counterState is the window bookkeeping shared by both store
// implementations: points used in the current window, when the window
// started, and until when the identifier is blocked.
type counterState struct {
	used         int64
	windowStart  int64 // unix ms
	blockedUntil int64 // unix ms, 0 when not blocked
}

// step advances the counter by one request at now (unix ms) and returns the
// result. The same transition runs inside the Redis Lua script; keeping this
// copy in Go gives the fallback identical semantics.
func (s *counterState) step(now int64, rule config.LimiterRule) Result {
	windowMs := rule.Window.Milliseconds()
	blockMs := rule.Block.Milliseconds()

	if s.blockedUntil > now {
		return Result{Allowed: false, Remaining: 0, ResetMs: s.blockedUntil - now}
	}
	if s.windowStart == 0 || now-s.windowStart >= windowMs {
		s.used = 0
		s.windowStart = now
		s.blockedUntil = 0
	}
	s.used++
	if s.used > int64(rule.Points) {
		s.blockedUntil = now + blockMs
		return Result{Allowed: false, Remaining: 0, ResetMs: blockMs}
	}
	return Result{
		Allowed:   true,
		Remaining: int64(rule.Points) - s.used,
		ResetMs:   s.windowStart + windowMs - now,
	}
}

func nowMs() int64 { return time.Now().UnixMilli() }
