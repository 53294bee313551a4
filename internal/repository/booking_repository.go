package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// BookingRepo encapsulates access to the bookings table.  The *Tx methods
// run inside the booking workflow's transaction.
type BookingRepo struct{ db *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "id, room_id, user_id, check_in, check_out, status, created_at, updated_at"

func scanBooking(row interface{ Scan(...any) error }) (*model.Booking, error) {
	var b model.Booking
	if err := row.Scan(&b.ID, &b.RoomID, &b.UserID, &b.CheckIn, &b.CheckOut,
		&b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func listBookings(ctx context.Context, q querier, query string, args ...any) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// CreateTx inserts b within tx.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (id, room_id, user_id, check_in, check_out, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.RoomID, b.UserID, b.CheckIn, b.CheckOut, b.Status, b.CreatedAt, b.UpdatedAt)
	return err
}

// ListBookedByRoomForUpdateTx returns every booked booking of the room and
// locks those rows for the rest of tx.
func (r *BookingRepo) ListBookedByRoomForUpdateTx(ctx context.Context, tx *sql.Tx, roomID string) ([]model.Booking, error) {
	return listBookings(ctx, tx,
		"SELECT "+bookingColumns+" FROM bookings WHERE room_id = ? AND status = 'booked' ORDER BY check_in FOR UPDATE",
		roomID)
}

// CountBookedByRoomTx counts the booked bookings of a room within tx.
func (r *BookingRepo) CountBookedByRoomTx(ctx context.Context, tx *sql.Tx, roomID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = 'booked'", roomID).Scan(&n)
	return n, err
}

// GetByID returns a booking or ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	return b, notFound(err, ErrBookingNotFound)
}

// GetByIDTx reads a booking inside tx without locking it.  The caller
// locks the room first and then re-reads with GetByIDForUpdateTx.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id string) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ?", id))
	return b, notFound(err, ErrBookingNotFound)
}

// GetByIDForUpdateTx reads a booking and locks its row for the rest of tx.
func (r *BookingRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = ? FOR UPDATE", id))
	return b, notFound(err, ErrBookingNotFound)
}

// UpdateStatusTx sets the status of a booking within tx.  The booking must
// already be locked by GetByIDForUpdateTx; rewriting the same status
// succeeds.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.BookingStatus) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Truncate(time.Second), id)
	return err
}

// ListByUser returns the bookings of a user, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	return listBookings(ctx, r.db,
		"SELECT "+bookingColumns+" FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id", userID)
}

// CountUpcomingByHotel counts booked bookings of the hotel's rooms whose
// stay has not ended at now.
func (r *BookingRepo) CountUpcomingByHotel(ctx context.Context, hotelID string, now time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings b
		 JOIN rooms r ON r.id = b.room_id
		 WHERE r.hotel_id = ? AND b.status = 'booked' AND b.check_out > ?`,
		hotelID, now).Scan(&n)
	return n, err
}
