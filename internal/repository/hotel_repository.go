package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-booking/internal/database"
	"github.com/iliyamo/hotel-booking/internal/model"
)

// ErrDuplicateHotel is returned when another active hotel already has the
// same name and location.
var ErrDuplicateHotel = errors.New("hotel with same name and location already exists")

// HotelRepo provides access to the hotels table.
type HotelRepo struct{ db *sql.DB }

func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{db: db} }

// HotelSearchQuery defines filters, ordering and pagination for listing
// hotels.
type HotelSearchQuery struct {
	Name     string
	Location string
	RoomType model.RoomType
	SortBy   string // name | location
	Order    string // asc | desc
	Page     int
	PageSize int
}

// HotelWithRooms is a catalog row: a hotel plus its active rooms.
type HotelWithRooms struct {
	model.Hotel
	Rooms []model.Room `json:"rooms"`
}

const hotelColumns = "id, name, location, created_by, created_at, updated_at"

func scanHotel(row interface{ Scan(...any) error }) (*model.Hotel, error) {
	var h model.Hotel
	if err := row.Scan(&h.ID, &h.Name, &h.Location, &h.CreatedBy, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *HotelRepo) existsByNameLocation(ctx context.Context, name, location, exceptID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM hotels
		 WHERE LOWER(name) = LOWER(?) AND LOWER(location) = LOWER(?) AND id <> ? AND deleted_at IS NULL`,
		name, location, exceptID).Scan(&n)
	return n > 0, err
}

// Create inserts a hotel.  Name and location together must be unique
// among active hotels.
func (r *HotelRepo) Create(ctx context.Context, h *model.Hotel) error {
	h.Name, h.Location = strings.TrimSpace(h.Name), strings.TrimSpace(h.Location)
	dup, err := r.existsByNameLocation(ctx, h.Name, h.Location, "")
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateHotel
	}
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	now := time.Now().UTC().Truncate(time.Second)
	h.CreatedAt, h.UpdatedAt = now, now
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO hotels (id, name, location, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		h.ID, h.Name, h.Location, h.CreatedBy, h.CreatedAt, h.UpdatedAt)
	if database.IsDuplicateKey(err) {
		return ErrDuplicateHotel
	}
	return err
}

// GetByID returns an active hotel or ErrHotelNotFound.
func (r *HotelRepo) GetByID(ctx context.Context, id string) (*model.Hotel, error) {
	h, err := scanHotel(r.db.QueryRowContext(ctx,
		"SELECT "+hotelColumns+" FROM hotels WHERE id = ? AND deleted_at IS NULL", id))
	return h, notFound(err, ErrHotelNotFound)
}

// Update changes the name and location.  It rejects collisions with another
// hotel and reports ErrConflict when nothing would change.
func (r *HotelRepo) Update(ctx context.Context, h *model.Hotel) error {
	cur, err := r.GetByID(ctx, h.ID)
	if err != nil {
		return err
	}
	h.Name, h.Location = strings.TrimSpace(h.Name), strings.TrimSpace(h.Location)
	if h.Name == "" {
		h.Name = cur.Name
	}
	if h.Location == "" {
		h.Location = cur.Location
	}
	if h.Name == cur.Name && h.Location == cur.Location {
		return ErrConflict
	}
	dup, err := r.existsByNameLocation(ctx, h.Name, h.Location, h.ID)
	if err != nil {
		return err
	}
	if dup {
		return ErrDuplicateHotel
	}
	h.CreatedBy, h.CreatedAt = cur.CreatedBy, cur.CreatedAt
	h.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	_, err = r.db.ExecContext(ctx,
		"UPDATE hotels SET name = ?, location = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
		h.Name, h.Location, h.UpdatedAt, h.ID)
	return err
}

// SoftDelete hides a hotel and its rooms from the catalog.  Hotels with
// booked bookings on any room are rejected with ErrConflict.
func (r *HotelRepo) SoftDelete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM hotels WHERE id = ? AND deleted_at IS NULL FOR UPDATE", id).Scan(&one)
		if err != nil {
			return notFound(err, ErrHotelNotFound)
		}
		var active int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM bookings b JOIN rooms r ON r.id = b.room_id
			 WHERE r.hotel_id = ? AND b.status = 'booked'`, id).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return ErrConflict
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE rooms SET deleted_at = CURRENT_TIMESTAMP WHERE hotel_id = ? AND deleted_at IS NULL", id); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE hotels SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?", id)
		return err
	})
}

var hotelSortColumns = map[string]string{
	"name":     "h.name",
	"location": "h.location",
}

// Search lists active hotels matching q together with their rooms.  It
// returns the requested page and the total number of matching hotels.
func (r *HotelRepo) Search(ctx context.Context, q HotelSearchQuery) ([]HotelWithRooms, int64, error) {
	where := []string{"h.deleted_at IS NULL"}
	args := []any{}

	if q.Name != "" {
		where = append(where, "LOWER(h.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.Location != "" {
		where = append(where, "LOWER(h.location) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Location)+"%")
	}
	if q.RoomType != "" {
		where = append(where,
			"EXISTS (SELECT 1 FROM rooms rt WHERE rt.hotel_id = h.id AND rt.type = ? AND rt.deleted_at IS NULL)")
		args = append(args, q.RoomType)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM hotels h WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sortCol, ok := hotelSortColumns[strings.ToLower(q.SortBy)]
	if !ok {
		sortCol = "h.created_at"
	}
	dir := "ASC"
	if strings.EqualFold(q.Order, "desc") {
		dir = "DESC"
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT h.id, h.name, h.location, h.created_by, h.created_at, h.updated_at
		FROM hotels h
		WHERE ` + cond + `
		ORDER BY ` + sortCol + ` ` + dir + `, h.id
		LIMIT ? OFFSET ?`
	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]HotelWithRooms, 0, limit)
	index := map[string]int{}
	for rows.Next() {
		h, err := scanHotel(rows)
		if err != nil {
			return nil, 0, err
		}
		index[h.ID] = len(out)
		out = append(out, HotelWithRooms{Hotel: *h, Rooms: []model.Room{}})
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return out, total, nil
	}

	ids := make([]any, 0, len(out))
	for _, h := range out {
		ids = append(ids, h.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rooms, err := listRooms(ctx, r.db,
		"SELECT "+roomColumns+" FROM rooms WHERE hotel_id IN ("+placeholders+") AND deleted_at IS NULL ORDER BY hotel_id, room_number",
		ids...)
	if err != nil {
		return nil, 0, err
	}
	for _, rm := range rooms {
		i := index[rm.HotelID]
		out[i].Rooms = append(out[i].Rooms, rm)
	}
	return out, total, nil
}
