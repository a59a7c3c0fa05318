package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	Update(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	List(ctx context.Context) ([]domain.Booking, error)
	FindActiveByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error)
	ExistsOverlapping(ctx context.Context, roomID int64, rng domain.DateRange, excludeID *int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, roomStatus *domain.RoomStatus) (*domain.Booking, error)
	Delete(ctx context.Context, id int64) error
	ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db}
}

const bookingColumns = `id, code, room_id, customer_name, customer_email, customer_phone,
	check_in, check_out, num_guests, total_price_cents, status, special_requests, created_at, updated_at`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.Code, &b.RoomID, &b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.CheckIn, &b.CheckOut, &b.NumGuests, &b.TotalPriceCents, &b.Status, &b.SpecialRequests,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func activeStatuses() []string {
	statuses := domain.ActiveBookingStatuses()
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

// Create runs the availability check and the insert inside one transaction,
// locking the room row first so concurrent creations for the same room are
// serialized. The exclusion constraint in the schema is the backstop for
// anything that still races past the check.
func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var roomID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id=$1 FOR UPDATE`, booking.RoomID).Scan(&roomID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRoomNotFound
		}
		return err
	}

	overlaps, err := existsOverlappingTx(ctx, tx, booking.RoomID, booking.Range(), nil)
	if err != nil {
		return err
	}
	if overlaps {
		return domain.ErrRoomNotAvailable
	}

	booking.Status = domain.BookingStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO bookings (code, room_id, customer_name, customer_email, customer_phone,
		check_in, check_out, num_guests, total_price_cents, status, special_requests)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		booking.Code, booking.RoomID, booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		booking.CheckIn, booking.CheckOut, booking.NumGuests, booking.TotalPriceCents, booking.Status, booking.SpecialRequests).
		Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		return mapConflict(err)
	}

	return tx.Commit(ctx)
}

// Update rewrites a booking's mutable fields, re-running the overlap check
// with the booking itself excluded so an update never conflicts with its own
// existing reservation.
func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var roomID int64
	if err := tx.QueryRow(ctx, `SELECT id FROM rooms WHERE id=$1 FOR UPDATE`, booking.RoomID).Scan(&roomID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRoomNotFound
		}
		return err
	}

	overlaps, err := existsOverlappingTx(ctx, tx, booking.RoomID, booking.Range(), &booking.ID)
	if err != nil {
		return err
	}
	if overlaps {
		return domain.ErrRoomNotAvailable
	}

	row := tx.QueryRow(ctx, `UPDATE bookings SET room_id=$1, customer_name=$2, customer_email=$3, customer_phone=$4,
		check_in=$5, check_out=$6, num_guests=$7, total_price_cents=$8, special_requests=$9, updated_at=now()
		WHERE id=$10
		RETURNING `+bookingColumns,
		booking.RoomID, booking.CustomerName, booking.CustomerEmail, booking.CustomerPhone,
		booking.CheckIn, booking.CheckOut, booking.NumGuests, booking.TotalPriceCents, booking.SpecialRequests, booking.ID)
	updated, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrBookingNotFound
		}
		return mapConflict(err)
	}
	*booking = *updated

	return tx.Commit(ctx)
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

func (r *PGBookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PGBookingRepository) FindActiveByRoom(ctx context.Context, roomID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings
		WHERE room_id=$1 AND status = ANY($2) ORDER BY check_in`, roomID, activeStatuses())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PGBookingRepository) ExistsOverlapping(ctx context.Context, roomID int64, rng domain.DateRange, excludeID *int64) (bool, error) {
	return existsOverlappingTx(ctx, r.db, roomID, rng, excludeID)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Half-open interval overlap: [a,b) overlaps [c,d) iff a < d AND c < b. A
// checkout on day X never collides with a check-in on day X.
func existsOverlappingTx(ctx context.Context, q querier, roomID int64, rng domain.DateRange, excludeID *int64) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM bookings
		WHERE room_id=$1 AND status = ANY($2)
			AND check_in < $4 AND $3 < check_out
			AND ($5::bigint IS NULL OR id <> $5)
	)`, roomID, activeStatuses(), rng.CheckIn, rng.CheckOut, excludeID).Scan(&exists)
	return exists, err
}

// UpdateStatus changes the booking status and, when the lifecycle demands it,
// flips the room status in the same transaction. The room update is guarded so
// a staff-set maintenance or cleaning state is never overwritten.
func (r *PGBookingRepository) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, roomStatus *domain.RoomStatus) (*domain.Booking, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `UPDATE bookings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+bookingColumns, status, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBookingNotFound
		}
		return nil, err
	}

	if roomStatus != nil {
		if _, err := tx.Exec(ctx, `UPDATE rooms SET status=$1, updated_at=now()
			WHERE id=$2 AND status = ANY($3)`,
			*roomStatus, b.RoomID, []string{string(domain.RoomStatusAvailable), string(domain.RoomStatusOccupied)}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

// Delete is the administrative hard delete; it bypasses the state machine.
func (r *PGBookingRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM bookings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *PGBookingRepository) ExpirePendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings SET status=$1, updated_at=now()
		WHERE status=$2 AND created_at <= $3
		RETURNING `+bookingColumns, domain.BookingStatusCancelled, domain.BookingStatusPending, deadline)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// mapConflict translates unique (23505) and exclusion (23P01) violations into
// the domain conflict error so a race that slipped past the in-transaction
// check is handled like any other lost availability contest.
func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "23505" || pgErr.Code == "23P01") {
		return domain.ErrPersistenceConflict
	}
	return err
}

var _ BookingRepository = (*PGBookingRepository)(nil)
