// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Event types, also used as queue names.
const (
	BookingCreated   = "booking.created"
	BookingCancelled = "booking.cancelled"
)

// BookingEvent is published after a booking transaction commits.  It
// carries enough information for downstream consumers to log, notify, or
// trigger analytics without querying the primary database.
type BookingEvent struct {
	Type          string    `json:"type"`
	BookingID     string    `json:"booking_id"`
	RoomID        string    `json:"room_id"`
	UserID        string    `json:"user_id"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	AmountCents   uint64    `json:"amount_cents"`
	PaymentStatus string    `json:"payment_status,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
