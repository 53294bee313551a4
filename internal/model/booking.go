package model

import "time"

// BookingStatus is the lifecycle state of a booking.  The only
// transition is booked → cancelled.
type BookingStatus string

const (
	BookingBooked    BookingStatus = "booked"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking reserves a room for the half-open interval [CheckIn, CheckOut).
// For a fixed room, bookings with status booked never overlap.
//
// Fields:
//
//	ID        – primary key (UUID string).
//	RoomID    – reserved room.
//	UserID    – user who made the booking.
//	CheckIn   – start of the stay (inclusive, UTC).
//	CheckOut  – end of the stay (exclusive, UTC).
//	Status    – booked or cancelled.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last update timestamp.
type Booking struct {
	ID        string        `json:"id"`         // bookings.id
	RoomID    string        `json:"room_id"`    // bookings.room_id
	UserID    string        `json:"user_id"`    // bookings.user_id
	CheckIn   time.Time     `json:"check_in"`   // bookings.check_in
	CheckOut  time.Time     `json:"check_out"`  // bookings.check_out
	Status    BookingStatus `json:"status"`     // bookings.status
	CreatedAt time.Time     `json:"created_at"` // bookings.created_at
	UpdatedAt time.Time     `json:"updated_at"` // bookings.updated_at
}

// Overlaps reports whether the half-open intervals [aIn, aOut) and
// [bIn, bOut) intersect.  Touching endpoints do not overlap, so a
// checkout and a check-in at the same instant can coexist.
func Overlaps(aIn, aOut, bIn, bOut time.Time) bool {
	return aIn.Before(bOut) && aOut.After(bIn)
}

// OverlapsRange reports whether b intersects [checkIn, checkOut).
func (b Booking) OverlapsRange(checkIn, checkOut time.Time) bool {
	return Overlaps(checkIn, checkOut, b.CheckIn, b.CheckOut)
}
