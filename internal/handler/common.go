// Package handler contains the echo HTTP handlers.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/middleware"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/service"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageMeta is returned next to every paginated list.
type pageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

func newPageMeta(page, limit int, total int64) pageMeta {
	pages := (total + int64(limit) - 1) / int64(limit)
	return pageMeta{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// pageParams reads ?page and ?limit, clamping them to sane bounds.
func pageParams(c echo.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

// currentUser returns the authenticated user id and whether they are an admin.
func currentUser(c echo.Context) (string, bool) {
	return middleware.UserID(c), middleware.Role(c) == model.RoleAdmin
}

// bindAndValidate binds the request body into req and runs the echo
// validator.  On failure it has already written a 400 response and
// returns false.
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := c.Validate(req); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fieldErrors(err)})
	}
	return true, nil
}

// respondError maps domain errors to HTTP responses.  Unknown errors are
// logged and answered with a generic 500.
func respondError(c echo.Context, err error) error {
	var vErr *service.ValidationError
	var txErr *service.TxError
	switch {
	case errors.As(err, &vErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": vErr.Fields})
	case errors.Is(err, repository.ErrRoomNotFound),
		errors.Is(err, repository.ErrBookingNotFound),
		errors.Is(err, repository.ErrHotelNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrBookingConflict),
		errors.Is(err, repository.ErrDuplicateRoom),
		errors.Is(err, repository.ErrDuplicateHotel),
		errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &txErr):
		logger.From(c).Error("booking transaction failed", zap.Bool("retryable", txErr.Retryable), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error":     "booking could not be completed",
			"retryable": txErr.Retryable,
		})
	}
	logger.From(c).Error("request failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
