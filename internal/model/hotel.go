package model

import "time"

// Hotel represents a property registered by an administrator.  A hotel
// owns many rooms.  This struct corresponds to a row in the `hotels`
// table.
//
// Fields:
//
//	ID        – primary key (UUID string).
//	Name      – display name; unique together with Location.
//	Location  – free-form city / address text.
//	CreatedBy – id of the admin who registered the hotel.
//	CreatedAt – timestamp when the row was created.
//	UpdatedAt – timestamp of last update.
type Hotel struct {
	ID        string    `json:"id"`         // hotels.id
	Name      string    `json:"name"`       // hotels.name
	Location  string    `json:"location"`   // hotels.location
	CreatedBy string    `json:"created_by"` // hotels.created_by
	CreatedAt time.Time `json:"created_at"` // hotels.created_at
	UpdatedAt time.Time `json:"updated_at"` // hotels.updated_at
}
