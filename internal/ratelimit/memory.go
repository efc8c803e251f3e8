package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/natalplan/auth-service/internal/config"
)

// MemoryStore keeps counters in process memory. It is used when Redis is
// unreachable; budgets are then only enforced per process, which is accepted
// degradation rather than a failed request.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*counterState
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{counters: make(map[string]*counterState)}
	go m.cleanup()
	return m
}

// Consume atomically takes one point for the key. It never returns an error.
func (m *MemoryStore) Consume(_ context.Context, key string, rule config.LimiterRule) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.counters[key]
	if !ok {
		st = &counterState{}
		m.counters[key] = st
	}
	return st.step(nowMs(), rule), nil
}

// cleanup drops counters whose window and block have both lapsed so the map
// does not grow without bound.
func (m *MemoryStore) cleanup() {
	for {
		time.Sleep(time.Minute)
		cutoff := nowMs() - time.Hour.Milliseconds()
		m.mu.Lock()
		for k, st := range m.counters {
			if st.windowStart < cutoff && st.blockedUntil < nowMs() {
				delete(m.counters, k)
			}
		}
		m.mu.Unlock()
	}
}
