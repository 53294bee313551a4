package model

import "time"

// RoomType enumerates the kinds of room a hotel can offer.
type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
	RoomSuite  RoomType = "suite"
)

// Valid reports whether t is one of the known room types.
func (t RoomType) Valid() bool {
	switch t {
	case RoomSingle, RoomDouble, RoomSuite:
		return true
	}
	return false
}

// Room is the unit of inventory that bookings reserve.  (HotelID,
// Number) is unique.  IsAvailable is a cached "no booked booking"
// flag maintained by the booking workflow; the set of booked bookings
// for the room is the authoritative source.
//
// Fields:
//
//	ID          – primary key (UUID string).
//	HotelID     – owning hotel.
//	Number      – room number, unique within the hotel.
//	Type        – single, double or suite.
//	PriceCents  – nightly price in cents, never negative.
//	IsAvailable – cached availability flag.
//	CreatedAt   – creation timestamp.
//	UpdatedAt   – last update timestamp.
type Room struct {
	ID          string    `json:"id"`           // rooms.id
	HotelID     string    `json:"hotel_id"`     // rooms.hotel_id
	Number      uint32    `json:"room_number"`  // rooms.room_number
	Type        RoomType  `json:"type"`         // rooms.type
	PriceCents  uint64    `json:"price_cents"`  // rooms.price_cents
	IsAvailable bool      `json:"is_available"` // rooms.is_available
	CreatedAt   time.Time `json:"created_at"`   // rooms.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // rooms.updated_at
}
