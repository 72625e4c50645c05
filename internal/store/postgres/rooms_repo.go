package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"roombook/backend/internal/domain"
)

type RoomRepo struct {
	db *bun.DB
}

func NewRoomRepo(db *bun.DB) *RoomRepo {
	return &RoomRepo{db: db}
}

func (r *RoomRepo) RoomExists(ctx context.Context, roomID uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*domain.Room)(nil)).
		Where("r.id = ?", roomID).
		Exists(ctx)
}
