package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parley-chat/session-service/internal/domain"
	"github.com/parley-chat/session-service/internal/security"
)

type RoomStore interface {
	Create(ctx context.Context, room *domain.Room) (*domain.Room, error)
	GetByName(ctx context.Context, name string) (*domain.Room, error)
	ListPublic(ctx context.Context) ([]domain.Room, error)
}

type RoomService struct {
	rooms RoomStore
}

func NewRoomService(rooms RoomStore) *RoomService {
	return &RoomService{rooms: rooms}
}

// JoinOrCreate resolves a room by name, creating it when absent. Joining an
// existing private room requires its password; creating a private room
// stores a bcrypt hash of the supplied one.
func (s *RoomService) JoinOrCreate(ctx context.Context, name string, roomType domain.RoomType, password string) (*domain.Room, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, fmt.Errorf("room name is required")
	}

	room, err := s.rooms.GetByName(ctx, name)
	switch {
	case err == nil:
		if room.Type == domain.RoomPrivate {
			if room.PasswordHash == nil || security.ComparePassword(*room.PasswordHash, password) != nil {
				return nil, false, domain.ErrWrongPassword
			}
		}
		return room, false, nil
	case !errors.Is(err, domain.ErrRoomNotFound):
		return nil, false, fmt.Errorf("rooms.GetByName: %w", err)
	}

	if roomType != domain.RoomPrivate {
		roomType = domain.RoomPublic
	}
	newRoom := &domain.Room{Name: name, Type: roomType}
	if roomType == domain.RoomPrivate {
		hash, err := security.HashPassword(password, nil)
		if err != nil {
			return nil, false, err
		}
		newRoom.PasswordHash = &hash
	}

	created, err := s.rooms.Create(ctx, newRoom)
	if err != nil {
		return nil, false, fmt.Errorf("rooms.Create: %w", err)
	}
	return created, true, nil
}

// ListPublic returns all public rooms for the discovery surface.
func (s *RoomService) ListPublic(ctx context.Context) ([]domain.Room, error) {
	return s.rooms.ListPublic(ctx)
}
