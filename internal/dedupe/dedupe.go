// Package dedupe suppresses repeat filesystem events for the same path
// within a trailing time window. A single file creation often surfaces as
// several raw events (create plus a later rename or flush); gating after
// pattern matching keeps unrelated files from being suppressed by timing
// coincidence.
package dedupe

import (
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Gate is the dedup cache. Safe for concurrent use; prune, membership check,
// and insert happen inside one critical section.
type Gate struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]time.Time
}

// New builds a gate with the given suppression window. A zero or negative
// ttl disables suppression entirely.
func New(ttl time.Duration) *Gate {
	return NewWithClock(ttl, time.Now)
}

// NewWithClock allows injecting the clock (used in tests).
func NewWithClock(ttl time.Duration, now func() time.Time) *Gate {
	return &Gate{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]time.Time),
	}
}

// Seen reports whether path was already admitted within the window. On a
// miss the path is recorded and false is returned, meaning the caller should
// enqueue it. An entry records admission, not processing outcome.
func (g *Gate) Seen(path string) bool {
	if g.ttl <= 0 {
		return false
	}
	key := Normalize(path)
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	for entry, seenAt := range g.entries {
		if now.Sub(seenAt) > g.ttl {
			delete(g.entries, entry)
		}
	}
	if _, ok := g.entries[key]; ok {
		return true
	}
	g.entries[key] = now
	return false
}

// Len reports the number of live cache entries. Used by tests.
func (g *Gate) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// Normalize folds a path into its case-insensitive absolute form. Keys are
// case-folded because the watched filesystems of interest treat names
// case-insensitively.
func Normalize(path string) string {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		abs = filepath.Clean(path)
	}
	return strings.ToLower(abs)
}
