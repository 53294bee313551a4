package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// ErrDuplicateRoom is returned when a hotel already has a room with the
// requested number.
var ErrDuplicateRoom = errors.New("room number already exists in hotel")

// RoomRepo provides CRUD access to rooms and the locking read used by
// the booking workflow.
type RoomRepo struct{ db *sql.DB }

func NewRoomRepo(db *sql.DB) *RoomRepo { return &RoomRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions.
func (r *RoomRepo) DB() *sql.DB { return r.db }

const roomColumns = "id, hotel_id, room_number, type, price_cents, is_available, created_at, updated_at"

func scanRoom(row interface{ Scan(...any) error }) (*model.Room, error) {
	var rm model.Room
	if err := row.Scan(&rm.ID, &rm.HotelID, &rm.Number, &rm.Type, &rm.PriceCents,
		&rm.IsAvailable, &rm.CreatedAt, &rm.UpdatedAt); err != nil {
		return nil, err
	}
	return &rm, nil
}

// Create inserts a new room.  ID and timestamps are filled in when empty.
// A new room starts available.
func (r *RoomRepo) Create(ctx context.Context, rm *model.Room) error {
	if rm.ID == "" {
		rm.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	rm.CreatedAt, rm.UpdatedAt = now, now
	rm.IsAvailable = true
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, hotel_id, room_number, type, price_cents, is_available, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rm.ID, rm.HotelID, rm.Number, rm.Type, rm.PriceCents, rm.IsAvailable, rm.CreatedAt, rm.UpdatedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrDuplicateRoom
		}
		return err
	}
	return nil
}

// GetRoom returns an active room or ErrRoomNotFound.
func (r *RoomRepo) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	rm, err := scanRoom(r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id = ? AND deleted_at IS NULL", id))
	return rm, notFound(err, ErrRoomNotFound)
}

// GetByIDForUpdateTx reads the room and takes an exclusive row lock on it
// for the rest of tx.  Every transaction that creates or cancels bookings
// for the room goes through this lock first.
func (r *RoomRepo) GetByIDForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Room, error) {
	rm, err := scanRoom(tx.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id = ? AND deleted_at IS NULL FOR UPDATE", id))
	return rm, notFound(err, ErrRoomNotFound)
}

// ListByHotel returns the active rooms of a hotel ordered by room number.
func (r *RoomRepo) ListByHotel(ctx context.Context, hotelID string) ([]model.Room, error) {
	return listRooms(ctx, r.db,
		"SELECT "+roomColumns+" FROM rooms WHERE hotel_id = ? AND deleted_at IS NULL ORDER BY room_number", hotelID)
}

func listRooms(ctx context.Context, q querier, query string, args ...any) ([]model.Room, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Room, 0)
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rm)
	}
	return out, rows.Err()
}

// SaveRoom persists the mutable fields of a room (type and price).
func (r *RoomRepo) SaveRoom(ctx context.Context, rm *model.Room) error {
	rm.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := r.db.ExecContext(ctx,
		"UPDATE rooms SET type = ?, price_cents = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		rm.Type, rm.PriceCents, rm.UpdatedAt, rm.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomNotFound
	}
	return nil
}

// SetAvailabilityTx writes the cached availability flag within tx.  The
// caller holds the room lock, so an unchanged row is not an error.
func (r *RoomRepo) SetAvailabilityTx(ctx context.Context, tx *sql.Tx, id string, available bool) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE rooms SET is_available = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", available, id)
	return err
}

// SoftDelete removes a room from the catalog.  The room is locked first
// so no booking can slip in between the check and the delete; rooms with
// booked bookings are rejected with ErrConflict.
func (r *RoomRepo) SoftDelete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		if _, err := r.GetByIDForUpdateTx(ctx, tx, id); err != nil {
			return err
		}
		var active int
		if err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM bookings WHERE room_id = ? AND status = 'booked'", id).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return ErrConflict
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE rooms SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?", id)
		return err
	})
}
