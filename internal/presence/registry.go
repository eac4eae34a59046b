package presence

import (
	"sort"
	"sync"
)

// Registry tracks which usernames are online per room. A user with several
// connections still appears once. All mutations go through Join/Leave so
// overlapping transitions for a room cannot interleave.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{} // room -> set of usernames
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]struct{})}
}

// Join adds username to the room's online set. Idempotent; returns the
// updated set.
func (r *Registry) Join(room, username string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users, ok := r.rooms[room]
	if !ok {
		users = make(map[string]struct{})
		r.rooms[room] = users
	}
	users[username] = struct{}{}

	return snapshot(users)
}

// Leave removes username if present. Idempotent; returns the updated set.
func (r *Registry) Leave(room, username string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	users := r.rooms[room]
	delete(users, username)
	if len(users) == 0 {
		delete(r.rooms, room)
	}

	return snapshot(users)
}

// Online returns the current set of online usernames for the room.
func (r *Registry) Online(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return snapshot(r.rooms[room])
}

// snapshot copies the set into a sorted slice. Order is not significant to
// callers; sorting just keeps payloads stable.
func snapshot(users map[string]struct{}) []string {
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
