package collectors

import (
	"sync"
	"time"
)

// sweepThreshold bounds how large the ledger may grow before stale entries
// are evicted opportunistically on insert.
const sweepThreshold = 1024

// DedupeLedger remembers recently processed webhook keys so rapid repeat
// deliveries can be dropped. Process-lifetime state, no persistence.
type DedupeLedger struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time

	now func() time.Time
}

func NewDedupeLedger(window time.Duration) *DedupeLedger {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &DedupeLedger{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Duplicate reports whether key was already observed inside the de-dupe
// window. A non-duplicate observation is recorded; a duplicate does not
// refresh the original timestamp, so a burst of repeats drains after one
// window rather than extending itself forever.
func (l *DedupeLedger) Duplicate(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if ts, ok := l.seen[key]; ok && now.Sub(ts) <= l.window {
		return true
	}

	l.seen[key] = now
	if len(l.seen) > sweepThreshold {
		l.sweep(now)
	}
	return false
}

// sweep evicts entries older than twice the window. Called with the lock
// held.
func (l *DedupeLedger) sweep(now time.Time) {
	cutoff := now.Add(-2 * l.window)
	for key, ts := range l.seen {
		if ts.Before(cutoff) {
			delete(l.seen, key)
		}
	}
}
