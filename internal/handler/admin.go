package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
)

// AdminHandler manages administrator accounts and payments.
type AdminHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Payments *repository.PaymentRepo
}

func NewAdminHandler(cfg config.Config, u *repository.UserRepo, p *repository.PaymentRepo) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Payments: p}
}

// CreateAdmin handles POST /v1/admin/admins.
func (h *AdminHandler) CreateAdmin(c echo.Context) error {
	var req registerReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	u, err := h.Users.Create(c.Request().Context(), req.Name, req.Email, req.Password, model.RoleAdmin, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, u)
}

// Promote handles PATCH /v1/admin/users/:id/promote.
func (h *AdminHandler) Promote(c echo.Context) error {
	return h.setRole(c, model.RoleAdmin)
}

// Demote handles PATCH /v1/admin/users/:id/demote.  Admins cannot demote
// themselves.
func (h *AdminHandler) Demote(c echo.Context) error {
	if uid, _ := currentUser(c); uid == c.Param("id") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot demote yourself"})
	}
	return h.setRole(c, model.RoleUser)
}

func (h *AdminHandler) setRole(c echo.Context, role string) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if u.Role == role {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user already has role " + role})
	}
	if err := h.Users.SetRole(ctx, id, role); err != nil {
		return respondError(c, err)
	}
	u.Role = role
	return c.JSON(http.StatusOK, u)
}

// DeleteAdmin handles DELETE /v1/admin/admins/:id.
func (h *AdminHandler) DeleteAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")
	if uid, _ := currentUser(c); uid == id {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete yourself"})
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	if u.Role != model.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user is not an admin"})
	}
	if err := h.Users.SoftDelete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListAdmins handles GET /v1/admin/admins.
func (h *AdminHandler) ListAdmins(c echo.Context) error { return h.listByRole(c, model.RoleAdmin) }

// ListUsers handles GET /v1/admin/users.
func (h *AdminHandler) ListUsers(c echo.Context) error { return h.listByRole(c, model.RoleUser) }

func (h *AdminHandler) listByRole(c echo.Context, role string) error {
	page, limit := pageParams(c)
	items, total, err := h.Users.ListByRole(c.Request().Context(), role, limit, (page-1)*limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "meta": newPageMeta(page, limit, total)})
}

// CompletePayment handles PATCH /v1/admin/payments/:id/complete.
func (h *AdminHandler) CompletePayment(c echo.Context) error {
	p, err := h.Payments.Complete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "only pending payments can be completed"})
		}
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
