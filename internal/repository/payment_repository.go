package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/hotel-booking/internal/model"
)

// PaymentRepo encapsulates access to the payments table.  Each booking
// owns exactly one payment.
type PaymentRepo struct{ db *sql.DB }

func NewPaymentRepo(db *sql.DB) *PaymentRepo { return &PaymentRepo{db: db} }

const paymentColumns = "id, booking_id, amount_cents, status, created_at, updated_at"

func scanPayment(row interface{ Scan(...any) error }) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(&p.ID, &p.BookingID, &p.AmountCents, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateTx inserts p within tx.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (id, booking_id, amount_cents, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.BookingID, p.AmountCents, p.Status, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetByBookingIDForUpdateTx reads and locks the payment of a booking.
func (r *PaymentRepo) GetByBookingIDForUpdateTx(ctx context.Context, tx *sql.Tx, bookingID string) (*model.Payment, error) {
	p, err := scanPayment(tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE booking_id = ? FOR UPDATE", bookingID))
	return p, notFound(err, ErrPaymentNotFound)
}

// GetByBookingID returns the payment of a booking.
func (r *PaymentRepo) GetByBookingID(ctx context.Context, bookingID string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE booking_id = ?", bookingID))
	return p, notFound(err, ErrPaymentNotFound)
}

// GetByID returns a payment by id.
func (r *PaymentRepo) GetByID(ctx context.Context, id string) (*model.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id))
	return p, notFound(err, ErrPaymentNotFound)
}

// UpdateStatusTx sets the status of a payment within tx.  The payment must
// already be locked by GetByBookingIDForUpdateTx.
func (r *PaymentRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.PaymentStatus) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE payments SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Truncate(time.Second), id)
	return err
}

// Complete moves a pending payment to completed.  Payments in any other
// state yield ErrConflict.
func (r *PaymentRepo) Complete(ctx context.Context, id string) (*model.Payment, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE payments SET status = 'completed', updated_at = ? WHERE id = ? AND status = 'pending'",
		time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return nil, err
	}
	n, _ := res.RowsAffected()
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrConflict
	}
	return p, nil
}
