package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// ListRooms handles GET /v1/hotels/:id/rooms.
func (h *CatalogHandler) ListRooms(c echo.Context) error {
	ctx := c.Request().Context()
	hotel, err := h.Hotels.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	rooms, err := h.Rooms.ListByHotel(ctx, hotel.ID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rooms})
}

// GetRoom handles GET /v1/rooms/:id.
func (h *CatalogHandler) GetRoom(c echo.Context) error {
	rm, err := h.Rooms.GetRoom(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, rm)
}

type createRoomReq struct {
	RoomNumber uint32 `json:"room_number" validate:"required,min=1"`
	Type       string `json:"type" validate:"required,oneof=single double suite"`
	PriceCents uint64 `json:"price_cents" validate:"min=0"`
}

type updateRoomReq struct {
	Type       string  `json:"type" validate:"omitempty,oneof=single double suite"`
	PriceCents *uint64 `json:"price_cents"`
}

// CreateRoom handles POST /v1/admin/hotels/:id/rooms.
func (h *CatalogHandler) CreateRoom(c echo.Context) error {
	var req createRoomReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	ctx := c.Request().Context()
	hotel, err := h.Hotels.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	rm := &model.Room{
		HotelID:    hotel.ID,
		Number:     req.RoomNumber,
		Type:       model.RoomType(req.Type),
		PriceCents: req.PriceCents,
	}
	if err := h.Rooms.Create(ctx, rm); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, rm)
}

// UpdateRoom handles PUT /v1/admin/rooms/:id.  Only type and price can
// change.
func (h *CatalogHandler) UpdateRoom(c echo.Context) error {
	var req updateRoomReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.Type == "" && req.PriceCents == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	ctx := c.Request().Context()
	rm, err := h.Rooms.GetRoom(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	before := *rm
	if req.Type != "" {
		rm.Type = model.RoomType(req.Type)
	}
	if req.PriceCents != nil {
		rm.PriceCents = *req.PriceCents
	}
	if rm.Type == before.Type && rm.PriceCents == before.PriceCents {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "no changes"})
	}
	if err := h.Rooms.SaveRoom(ctx, rm); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, rm)
}

// DeleteRoom handles DELETE /v1/admin/rooms/:id.
func (h *CatalogHandler) DeleteRoom(c echo.Context) error {
	if err := h.Rooms.SoftDelete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room has active bookings"})
		}
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}
