package typing

import (
	"sync"
	"time"
)

// DefaultTimeout is how long a typing mark survives without renewal.
const DefaultTimeout = 3 * time.Second

type key struct {
	room     string
	username string
}

type entry struct {
	gen      uint64 // current deadline token; stale fires compare and bail
	timer    *time.Timer
	onExpire func()
}

// Tracker holds per (room, user) typing state with debounced auto-expiry.
// Mark re-arms the deadline and cancels the previous one, so at most one
// expiry callback fires per typing session. Clear cancels outright; a
// cancelled deadline never fires.
type Tracker struct {
	mu      sync.Mutex
	timeout time.Duration
	entries map[key]*entry
}

func NewTracker(timeout time.Duration) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Tracker{
		timeout: timeout,
		entries: make(map[key]*entry),
	}
}

// Mark sets or refreshes the typing state for (room, username). onExpire is
// invoked once if the deadline passes without renewal; it replaces any
// callback from a previous Mark.
func (t *Tracker) Mark(room, username string, onExpire func()) {
	k := key{room: room, username: username}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[k]
	if !ok {
		e = &entry{}
		t.entries[k] = e
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.gen++
	e.onExpire = onExpire

	gen := e.gen
	e.timer = time.AfterFunc(t.timeout, func() {
		t.expire(k, gen)
	})
}

// Clear removes the typing state and cancels any pending deadline.
func (t *Tracker) Clear(room, username string) {
	k := key{room: room, username: username}

	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[k]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.gen++ // invalidate an already-fired AfterFunc racing for the lock
		delete(t.entries, k)
	}
}

// Typing reports whether (room, username) is currently marked.
func (t *Tracker) Typing(room, username string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.entries[key{room: room, username: username}]
	return ok
}

func (t *Tracker) expire(k key, gen uint64) {
	t.mu.Lock()
	e, ok := t.entries[k]
	if !ok || e.gen != gen {
		// renewed or cleared after this fire was scheduled
		t.mu.Unlock()
		return
	}
	cb := e.onExpire
	delete(t.entries, k)
	t.mu.Unlock()

	if cb != nil {
		cb()
	}
}
