package safety

import (
	"sync"
	"time"
)

// Limit allows Max calls per Window.
type Limit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits are the per-minute limits for each action.
func DefaultLimits() map[ActionType]Limit {
	return map[ActionType]Limit{
		ActionTrade:         {Max: 10, Window: time.Minute},
		ActionScan:          {Max: 60, Window: time.Minute},
		ActionResearch:      {Max: 30, Window: time.Minute},
		ActionPredictionBet: {Max: 5, Window: time.Minute},
	}
}

// Limiter is a sliding-window log limiter keyed by (action, user).
type Limiter struct {
	mu     sync.Mutex
	limits map[ActionType]Limit
	hits   map[string][]time.Time
	now    func() time.Time
}

// NewLimiter creates a Limiter. Actions without a limit are always allowed.
func NewLimiter(limits map[ActionType]Limit, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{limits: limits, hits: make(map[string][]time.Time), now: now}
}

// Allow records a hit if the window has room, otherwise returns how long until it will.
func (l *Limiter) Allow(action ActionType, userID string) (bool, time.Duration) {
	limit, ok := l.limits[action]
	if !ok || limit.Max <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := string(action) + ":" + userID
	now := l.now()
	cutoff := now.Add(-limit.Window)

	hits := l.hits[key]
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	hits = hits[i:]

	if len(hits) >= limit.Max {
		l.hits[key] = hits
		return false, hits[0].Add(limit.Window).Sub(now)
	}
	l.hits[key] = append(hits, now)
	return true, 0
}
