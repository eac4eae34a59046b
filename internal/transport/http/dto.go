package http

import (
	"time"

	"github.com/parley-chat/session-service/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

type JoinRoomRequest struct {
	RoomName string `json:"roomName"`
	RoomType string `json:"roomType,omitempty"`
	Password string `json:"password,omitempty"`
}

type RoomItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

type JoinRoomResponse struct {
	Room    RoomItem `json:"room"`
	Created bool     `json:"created"`
}

type RoomsListResponse struct {
	Rooms []RoomItem `json:"rooms"`
}

type ActivityResponse struct {
	Entries []domain.ActivityEntry `json:"entries"`
}

type MessagesPageResponse struct {
	Items      []domain.Message `json:"items"`
	NextCursor string           `json:"nextCursor,omitempty"`
}

func toRoomItem(r *domain.Room) RoomItem {
	return RoomItem{
		ID:        r.ID,
		Name:      r.Name,
		Type:      string(r.Type),
		CreatedAt: r.CreatedAt,
	}
}
