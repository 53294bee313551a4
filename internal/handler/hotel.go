package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// CatalogHandler serves hotels and rooms: public reads and admin writes.
type CatalogHandler struct {
	Hotels   *repository.HotelRepo
	Rooms    *repository.RoomRepo
	Bookings *repository.BookingRepo
	// Purge drops cached catalog responses after a write.  May be nil.
	Purge func(ctx context.Context) error
}

func NewCatalogHandler(h *repository.HotelRepo, r *repository.RoomRepo, b *repository.BookingRepo,
	purge func(ctx context.Context) error) *CatalogHandler {
	return &CatalogHandler{Hotels: h, Rooms: r, Bookings: b, Purge: purge}
}

func (h *CatalogHandler) purge(c echo.Context) {
	if h.Purge == nil {
		return
	}
	if err := h.Purge(c.Request().Context()); err != nil {
		logger.From(c).Warn("catalog cache purge failed", zap.Error(err))
	}
}

// ListHotels handles GET /v1/hotels?hotel_name=&location=&room_type=&sort_by=&order=&page=&limit=
func (h *CatalogHandler) ListHotels(c echo.Context) error {
	page, limit := pageParams(c)
	q := repository.HotelSearchQuery{
		Name:     c.QueryParam("hotel_name"),
		Location: c.QueryParam("location"),
		RoomType: model.RoomType(c.QueryParam("room_type")),
		SortBy:   c.QueryParam("sort_by"),
		Order:    c.QueryParam("order"),
		Page:     page,
		PageSize: limit,
	}
	if q.RoomType != "" && !q.RoomType.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "room_type must be single, double or suite"})
	}
	items, total, err := h.Hotels.Search(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "meta": newPageMeta(page, limit, total)})
}

type hotelDetail struct {
	model.Hotel
	Rooms            []model.Room `json:"rooms"`
	UpcomingBookings int64        `json:"upcoming_bookings"`
}

// GetHotel handles GET /v1/hotels/:id.
func (h *CatalogHandler) GetHotel(c echo.Context) error {
	ctx := c.Request().Context()
	hotel, err := h.Hotels.GetByID(ctx, c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	rooms, err := h.Rooms.ListByHotel(ctx, hotel.ID)
	if err != nil {
		return respondError(c, err)
	}
	upcoming, err := h.Bookings.CountUpcomingByHotel(ctx, hotel.ID, time.Now().UTC())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, hotelDetail{Hotel: *hotel, Rooms: rooms, UpcomingBookings: upcoming})
}

type hotelReq struct {
	Name     string `json:"name" validate:"required,max=150"`
	Location string `json:"location" validate:"required,max=150"`
}

type updateHotelReq struct {
	Name     string `json:"name" validate:"omitempty,max=150"`
	Location string `json:"location" validate:"omitempty,max=150"`
}

// CreateHotel handles POST /v1/admin/hotels.
func (h *CatalogHandler) CreateHotel(c echo.Context) error {
	var req hotelReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	uid, _ := currentUser(c)
	hotel := &model.Hotel{Name: req.Name, Location: req.Location, CreatedBy: uid}
	if err := h.Hotels.Create(c.Request().Context(), hotel); err != nil {
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, hotel)
}

// UpdateHotel handles PUT /v1/admin/hotels/:id.
func (h *CatalogHandler) UpdateHotel(c echo.Context) error {
	var req updateHotelReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	hotel := &model.Hotel{ID: c.Param("id"), Name: req.Name, Location: req.Location}
	if err := h.Hotels.Update(c.Request().Context(), hotel); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "no changes"})
		}
		return respondError(c, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, hotel)
}

// DeleteHotel handles DELETE /v1/admin/hotels/:id.
func (h *CatalogHandler) DeleteHotel(c echo.Context) error {
	if err := h.Hotels.SoftDelete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "hotel has active bookings"})
		}
		return respondError(c, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}
