package domain

import "time"

// EditSnapshot holds the content of a message as it was before one edit.
type EditSnapshot struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Reactions maps an emoji to the set of usernames that reacted with it.
// Set semantics are enforced here, not by the store.
type Reactions map[string][]string

// Add inserts username under emoji once; adding twice is a no-op.
func (r Reactions) Add(emoji, username string) Reactions {
	if r == nil {
		r = Reactions{}
	}
	for _, u := range r[emoji] {
		if u == username {
			return r
		}
	}
	r[emoji] = append(r[emoji], username)
	return r
}

// Remove drops username under emoji; an emptied set is deleted.
func (r Reactions) Remove(emoji, username string) Reactions {
	users := r[emoji]
	for i, u := range users {
		if u == username {
			r[emoji] = append(users[:i], users[i+1:]...)
			break
		}
	}
	if len(r[emoji]) == 0 {
		delete(r, emoji)
	}
	return r
}

type Message struct {
	ID          string         `json:"id"`
	Room        string         `json:"room"`
	Username    string         `json:"username"`
	Content     string         `json:"message"`
	CreatedAt   time.Time      `json:"timestamp"`
	SeenBy      []string       `json:"seenBy"`
	DeliveredTo []string       `json:"deliveredTo"` // snapshot at creation, never mutated
	ReplyTo     *string        `json:"replyTo,omitempty"`
	Reactions   Reactions      `json:"reactions"`
	Pinned      bool           `json:"pinned"`
	Edited      bool           `json:"edited"`
	EditHistory []EditSnapshot `json:"editHistory,omitempty"`
}

// MarkSeenBy records viewer in SeenBy. Returns false if viewer is the
// author or was already recorded; SeenBy never contains the author.
func (m *Message) MarkSeenBy(viewer string) bool {
	if viewer == m.Username {
		return false
	}
	for _, u := range m.SeenBy {
		if u == viewer {
			return false
		}
	}
	m.SeenBy = append(m.SeenBy, viewer)
	return true
}
