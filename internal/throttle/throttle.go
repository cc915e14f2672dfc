package throttle

import (
	"sync"
	"time"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/config"
)

// Group is a route group with its own window and quota. AI-heavy groups
// run shorter windows and lower quotas than the generic API.
type Group string

const (
	GroupChat     Group = "chat"
	GroupTasks    Group = "tasks"
	GroupCalendar Group = "calendar"
	GroupEmail    Group = "email"
	GroupGeneric  Group = "generic"
)

// Limit is the fixed-window policy for one group.
type Limit struct {
	Window time.Duration
	Quota  int
}

type windowKey struct {
	key   string
	group Group
}

// window is one fixed counting window. Admission control only — state
// is process-local and lost on restart by design.
type window struct {
	start time.Time
	count int
}

// Limiter admits or rejects requests per (caller key, route group)
// using fixed-window counters.
type Limiter struct {
	mu      sync.Mutex
	limits  map[Group]Limit
	windows map[windowKey]*window
	stopCh  chan struct{}
}

// New builds a limiter from configuration and starts the stale-window sweeper.
func New(cfg config.ThrottleConfig) *Limiter {
	l := &Limiter{
		limits: map[Group]Limit{
			GroupChat:     toLimit(cfg.Chat),
			GroupTasks:    toLimit(cfg.Tasks),
			GroupCalendar: toLimit(cfg.Calendar),
			GroupEmail:    toLimit(cfg.Email),
			GroupGeneric:  toLimit(cfg.Generic),
		},
		windows: make(map[windowKey]*window),
		stopCh:  make(chan struct{}),
	}
	go l.sweep()
	return l
}

func toLimit(g config.GroupLimit) Limit {
	return Limit{Window: time.Duration(g.WindowSeconds) * time.Second, Quota: g.Quota}
}

// Allow admits or rejects one request. On rejection it returns the time
// until the current window resets, as the retry-after hint.
func (l *Limiter) Allow(key string, group Group) (bool, time.Duration) {
	limit, ok := l.limits[group]
	if !ok || limit.Quota <= 0 || limit.Window <= 0 {
		return true, 0
	}

	now := time.Now()
	wk := windowKey{key: key, group: group}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, exists := l.windows[wk]
	if !exists || now.Sub(w.start) >= limit.Window {
		l.windows[wk] = &window{start: now, count: 1}
		return true, 0
	}

	if w.count >= limit.Quota {
		return false, limit.Window - now.Sub(w.start)
	}
	w.count++
	return true, 0
}

// sweep drops expired windows so idle callers don't accumulate state.
func (l *Limiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for wk, w := range l.windows {
				limit := l.limits[wk.group]
				if now.Sub(w.start) >= limit.Window {
					delete(l.windows, wk)
				}
			}
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}

// Stop shuts down the sweeper goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
}
