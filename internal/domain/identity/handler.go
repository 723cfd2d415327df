package identity

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/bind"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts /auth. login and seed-dev are listed in the auth
// skipper; /auth/me requires a token.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/auth")
	g.POST("/login", h.Login)
	g.POST("/seed-dev", h.SeedDev)
	g.GET("/me", h.Me)
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind.Request(c, &req); err != nil {
		return apperr.HTTP(err)
	}
	resp, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Me(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	v, err := h.svc.Me(c.Request().Context(), p)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, v)
}

func (h *Handler) SeedDev(c echo.Context) error {
	res, err := h.svc.SeedDev(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
