package service

import (
	"context"
	"testing"
	"time"

	"github.com/parley-chat/session-service/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRoomStore struct {
	rooms map[string]*domain.Room
}

func newMemRoomStore() *memRoomStore {
	return &memRoomStore{rooms: make(map[string]*domain.Room)}
}

func (s *memRoomStore) Create(_ context.Context, room *domain.Room) (*domain.Room, error) {
	room.ID = uuid.New().String()
	room.CreatedAt = time.Now()
	s.rooms[room.Name] = room
	return room, nil
}

func (s *memRoomStore) GetByName(_ context.Context, name string) (*domain.Room, error) {
	if r, ok := s.rooms[name]; ok {
		return r, nil
	}
	return nil, domain.ErrRoomNotFound
}

func (s *memRoomStore) ListPublic(_ context.Context) ([]domain.Room, error) {
	var out []domain.Room
	for _, r := range s.rooms {
		if r.Type == domain.RoomPublic {
			out = append(out, *r)
		}
	}
	return out, nil
}

func TestRoomService_JoinOrCreate(t *testing.T) {
	ctx := context.Background()
	svc := NewRoomService(newMemRoomStore())

	room, created, err := svc.JoinOrCreate(ctx, "general", "", "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoomPublic, room.Type)
	assert.Nil(t, room.PasswordHash)

	// joining an existing public room
	again, created, err := svc.JoinOrCreate(ctx, "general", "", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, room.ID, again.ID)
}

func TestRoomService_PrivateRoomPassword(t *testing.T) {
	ctx := context.Background()
	svc := NewRoomService(newMemRoomStore())

	room, created, err := svc.JoinOrCreate(ctx, "secret-club", domain.RoomPrivate, "letmein")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, domain.RoomPrivate, room.Type)
	require.NotNil(t, room.PasswordHash)
	assert.NotEqual(t, "letmein", *room.PasswordHash)

	_, _, err = svc.JoinOrCreate(ctx, "secret-club", "", "wrong")
	assert.ErrorIs(t, err, domain.ErrWrongPassword)

	_, created, err = svc.JoinOrCreate(ctx, "secret-club", "", "letmein")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestRoomService_NameRequired(t *testing.T) {
	svc := NewRoomService(newMemRoomStore())

	_, _, err := svc.JoinOrCreate(context.Background(), "   ", "", "")
	assert.Error(t, err)
}
