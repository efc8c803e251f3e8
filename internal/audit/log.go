// Package audit keeps a bounded in-memory log of security-relevant
// rejections: bad 2FA codes, exhausted rate limits, suspicious input. The
// log is an operational aid for a single process, not an audit of record,
// and is never consulted for authorization decisions.
package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event categories recorded by the handlers and middleware.
const (
	CategoryAuthFailure = "auth_failure"
	Category2FAFailure  = "2fa_failure"
	CategoryRateLimited = "rate_limited"
	CategoryBadInput    = "bad_input"
	CategoryTokenReplay = "token_replay"
)

// Event is one security observation. Events are append-only.
type Event struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	IP        string    `json:"ip"`
	Endpoint  string    `json:"endpoint"`
	Detail    string    `json:"detail"`
	UserAgent string    `json:"user_agent,omitempty"`
	At        time.Time `json:"at"`
}

// Log is a fixed-capacity ring: when full, the oldest event is evicted
// first. Safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	events []Event
	max    int
}

// NewLog creates a log bounded to max events.
func NewLog(max int) *Log {
	if max < 1 {
		max = 1
	}
	return &Log{events: make([]Event, 0, max), max: max}
}

// Record appends an event, evicting the oldest when at capacity. The ID and
// timestamp are filled in here.
func (l *Log) Record(category, ip, endpoint, detail, userAgent string) Event {
	e := Event{
		ID:        uuid.NewString(),
		Category:  category,
		IP:        ip,
		Endpoint:  endpoint,
		Detail:    detail,
		UserAgent: userAgent,
		At:        time.Now().UTC(),
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) == l.max {
		copy(l.events, l.events[1:])
		l.events = l.events[:l.max-1]
	}
	l.events = append(l.events, e)
	return e
}

// ByCategory returns events matching the category, oldest first.
func (l *Log) ByCategory(category string) []Event {
	return l.filter(func(e Event) bool { return e.Category == category })
}

// BySource returns events recorded for the source IP, oldest first.
func (l *Log) BySource(ip string) []Event {
	return l.filter(func(e Event) bool { return e.IP == ip })
}

// All returns a snapshot of every retained event, oldest first.
func (l *Log) All() []Event {
	return l.filter(func(Event) bool { return true })
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

func (l *Log) filter(keep func(Event) bool) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, 0, len(l.events))
	for _, e := range l.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
