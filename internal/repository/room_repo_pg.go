package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository interface {
	List(ctx context.Context) ([]domain.Room, error)
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
	GetRate(ctx context.Context, id int64) (int64, error)
	SetStatus(ctx context.Context, id int64, status domain.RoomStatus) error
}

type PGRoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) RoomRepository {
	return &PGRoomRepository{db: db}
}

const roomColumns = `id, room_number, room_type_id, status, price_cents, max_guests, created_at, updated_at`

func scanRoom(row pgx.Row) (*domain.Room, error) {
	var rm domain.Room
	if err := row.Scan(&rm.ID, &rm.RoomNumber, &rm.RoomTypeID, &rm.Status, &rm.PriceCents,
		&rm.MaxGuests, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *PGRoomRepository) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY room_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, *rm)
	}
	return rooms, rows.Err()
}

func (r *PGRoomRepository) GetByID(ctx context.Context, id int64) (*domain.Room, error) {
	row := r.db.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, id)
	rm, err := scanRoom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}
	return rm, nil
}

func (r *PGRoomRepository) GetRate(ctx context.Context, id int64) (int64, error) {
	var rate int64
	if err := r.db.QueryRow(ctx, `SELECT price_cents FROM rooms WHERE id=$1`, id).Scan(&rate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrRoomNotFound
		}
		return 0, err
	}
	return rate, nil
}

// SetStatus is the staff override: it may set any status, including cleaning
// and maintenance. Engine-driven flips go through the booking repository,
// which refuses to touch a staff-set state.
func (r *PGRoomRepository) SetStatus(ctx context.Context, id int64, status domain.RoomStatus) error {
	cmd, err := r.db.Exec(ctx, `UPDATE rooms SET status=$1, updated_at=now() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

var _ RoomRepository = (*PGRoomRepository)(nil)
