package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking/internal/config"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u}
}

type updateMeReq struct {
	Name     string `json:"name" validate:"omitempty,max=100"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

// Me handles GET /v1/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	uid, _ := currentUser(c)
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe handles PUT /v1/users/me.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req updateMeReq
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.Name == "" && req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	}
	var hash string
	if req.Password != "" {
		var err error
		if hash, err = utils.HashPassword(req.Password, h.Cfg.BcryptCost); err != nil {
			return respondError(c, err)
		}
	}
	uid, _ := currentUser(c)
	ctx := c.Request().Context()
	if err := h.Users.UpdateProfile(ctx, uid, req.Name, hash); err != nil {
		return respondError(c, err)
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}
