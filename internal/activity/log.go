package activity

import (
	"sync"
	"time"

	"github.com/parley-chat/session-service/internal/domain"
)

// Log is an append-only record of room events for observers (activity
// panels). Entries are never mutated or removed; bounded retention is an
// operational concern handled elsewhere.
type Log struct {
	mu      sync.RWMutex
	entries map[string][]domain.ActivityEntry // room -> entries, append order
}

func NewLog() *Log {
	return &Log{entries: make(map[string][]domain.ActivityEntry)}
}

// Append records an entry, stamping it with the current time when unset,
// and returns the stored entry.
func (l *Log) Append(e domain.ActivityEntry) domain.ActivityEntry {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	l.mu.Lock()
	l.entries[e.Room] = append(l.entries[e.Room], e)
	l.mu.Unlock()

	return e
}

// Recent returns up to n of the room's latest entries in append order.
// n <= 0 returns all of them.
func (l *Log) Recent(room string, n int) []domain.ActivityEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	all := l.entries[room]
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]domain.ActivityEntry, len(all))
	copy(out, all)
	return out
}
