// Package ratelimit implements the per-identifier point budgets protecting
// the authentication endpoints. A request consumes one point from a named
// budget; once the budget is exhausted the identifier is blocked for the
// rule's block duration. Counters live in Redis when it is reachable so the
// limits hold across processes, with an automatic in-process fallback.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/natalplan/auth-service/internal/config"
)

// Limiter is the long-lived service handed to request handlers. It is
// constructed once at process start and is safe for concurrent use. The
// "currently degraded" state is encapsulated here rather than in a global
// flag.
type Limiter struct {
	cfg      config.RateLimitConfig
	shared   *RedisStore // nil when Redis was unavailable at startup
	local    *MemoryStore
	degraded atomic.Bool
}

// New builds a Limiter. rdb may be nil; the limiter then runs on the
// in-process store only. When rdb is present a background loop probes it and
// promotes the limiter back to the shared store after an outage.
func New(cfg config.RateLimitConfig, rdb *redis.Client) *Limiter {
	l := &Limiter{cfg: cfg, local: NewMemoryStore()}
	if rdb != nil {
		l.shared = NewRedisStore(rdb)
		go l.healthLoop()
	}
	return l
}

// UserKey composes the identifier for an authenticated caller.
func UserKey(accountID uint64) string { return fmt.Sprintf("user:%d", accountID) }

// IPKey composes the identifier for an anonymous caller.
func IPKey(ip string) string { return "ip:" + ip }

// Check consumes one point for the identifier under the rule. It never
// returns an error: a shared-store failure demotes the limiter to the local
// store for this and subsequent calls instead of failing the request.
func (l *Limiter) Check(ctx context.Context, rule config.LimiterRule, identifier string) Result {
	if !l.cfg.Enabled {
		return Result{Allowed: true, Remaining: int64(rule.Points)}
	}
	key := l.cfg.Prefix + ":" + rule.Name + ":" + identifier

	if l.shared != nil && !l.degraded.Load() {
		cctx, cancel := context.WithTimeout(ctx, l.cfg.StoreTimeout)
		res, err := l.shared.Consume(cctx, key, rule)
		cancel()
		if err == nil {
			return res
		}
		// Demote: the local store carries the budget until the next
		// successful health check.
		if l.degraded.CompareAndSwap(false, true) {
			log.Printf("ratelimit: shared store unavailable, degrading to in-process counters: %v", err)
		}
	}

	res, _ := l.local.Consume(ctx, key, rule)
	return res
}

// Degraded reports whether the limiter currently runs on the local store.
func (l *Limiter) Degraded() bool { return l.shared == nil || l.degraded.Load() }

// healthLoop probes the shared store while degraded and promotes the limiter
// back once a ping succeeds.
func (l *Limiter) healthLoop() {
	for {
		time.Sleep(30 * time.Second)
		if !l.degraded.Load() {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.StoreTimeout)
		err := l.shared.Ping(ctx)
		cancel()
		if err == nil && l.degraded.CompareAndSwap(true, false) {
			log.Printf("ratelimit: shared store reachable again, promoting back")
		}
	}
}
