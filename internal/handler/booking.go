package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/service"
)

// BookingHandler exposes the booking workflows over HTTP.
type BookingHandler struct {
	Bookings *service.BookingService
}

func NewBookingHandler(s *service.BookingService) *BookingHandler {
	return &BookingHandler{Bookings: s}
}

type createBookingReq struct {
	RoomID   string `json:"room_id" validate:"required"`
	CheckIn  string `json:"check_in" validate:"required"`
	CheckOut string `json:"check_out" validate:"required"`
	Status   string `json:"status" validate:"omitempty,oneof=pending completed"`
}

// parseStayDate accepts a calendar date (2025-01-10) or an RFC 3339
// timestamp and returns it in UTC.
func parseStayDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req createBookingReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	fields := map[string]string{}
	checkIn, ok := parseStayDate(req.CheckIn)
	if !ok {
		fields["check_in"] = "must be YYYY-MM-DD or RFC 3339"
	}
	checkOut, ok := parseStayDate(req.CheckOut)
	if !ok {
		fields["check_out"] = "must be YYYY-MM-DD or RFC 3339"
	}
	if len(fields) > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
	}

	uid, _ := currentUser(c)
	res, err := h.Bookings.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		RoomID:        req.RoomID,
		UserID:        uid,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
		PaymentStatus: model.PaymentStatus(req.Status),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Cancel handles PATCH /v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, isAdmin := currentUser(c)
	res, err := h.Bookings.CancelBooking(c.Request().Context(), service.CancelBookingInput{
		BookingID:    c.Param("id"),
		ActorID:      uid,
		ActorIsAdmin: isAdmin,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// List handles GET /v1/bookings: the caller's own bookings.
func (h *BookingHandler) List(c echo.Context) error {
	uid, _ := currentUser(c)
	items, err := h.Bookings.ListBookings(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	uid, isAdmin := currentUser(c)
	res, err := h.Bookings.GetBooking(c.Request().Context(), c.Param("id"), uid, isAdmin)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
