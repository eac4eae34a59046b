package postgres

import (
	"context"
	"errors"

	"github.com/parley-chat/session-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO rooms (name, type, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`,
		room.Name, room.Type, room.PasswordHash).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return nil, err
	}
	return room, nil
}

func (r *RoomRepository) GetByName(ctx context.Context, name string) (*domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRow(ctx,
		`SELECT id, name, type, password_hash, created_at FROM rooms WHERE name=$1`, name).
		Scan(&rm.ID, &rm.Name, &rm.Type, &rm.PasswordHash, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return &rm, nil
}

func (r *RoomRepository) ListPublic(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, type, password_hash, created_at
		FROM rooms
		WHERE type=$1
		ORDER BY created_at DESC`, domain.RoomPublic)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var rm domain.Room
		if err := rows.Scan(&rm.ID, &rm.Name, &rm.Type, &rm.PasswordHash, &rm.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}
