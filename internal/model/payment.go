package model

import "time"

// PaymentStatus is the state of the payment attached to a booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentCompleted, PaymentRefunded:
		return true
	}
	return false
}

// Payment is the financial record created together with its booking.
// AmountCents is the room price at booking time and never changes.
type Payment struct {
	ID          string        `json:"id"`           // payments.id
	BookingID   string        `json:"booking_id"`   // payments.booking_id (unique)
	AmountCents uint64        `json:"amount_cents"` // payments.amount_cents
	Status      PaymentStatus `json:"status"`       // payments.status
	CreatedAt   time.Time     `json:"created_at"`   // payments.created_at
	UpdatedAt   time.Time     `json:"updated_at"`   // payments.updated_at
}
