package domain

import "time"

type RoomType string

const (
	RoomPublic  RoomType = "public"
	RoomPrivate RoomType = "private"
)

type Room struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Type         RoomType  `db:"type"`
	PasswordHash *string   `db:"password_hash"` // nil for public rooms
	CreatedAt    time.Time `db:"created_at"`
}
