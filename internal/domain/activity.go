package domain

import "time"

type ActivityType string

const (
	ActivityJoin    ActivityType = "join"
	ActivityLeave   ActivityType = "leave"
	ActivityMessage ActivityType = "message"
	ActivityEdit    ActivityType = "edit"
	ActivityDelete  ActivityType = "delete"
	ActivityReply   ActivityType = "reply"
)

// ActivityEntry is an append-only record of a room event. Entries are
// never mutated or removed once appended.
type ActivityEntry struct {
	Type     ActivityType `json:"type"`
	Username string       `json:"username"`
	Room     string       `json:"room"`
	Time     time.Time    `json:"time"`
	Content  string       `json:"content,omitempty"`
}
