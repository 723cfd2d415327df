package inbox

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/notifications", auth.RequireRole(auth.RolePharmacist, auth.RolePharmacyAdmin))
	g.GET("", h.List)
	g.PATCH("/:id/read", h.MarkRead)
}

func (h *Handler) List(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	msgs, err := h.svc.List(c.Request().Context(), p.PharmacistID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, msgs)
}

func (h *Handler) MarkRead(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.NotFound("notification not found"))
	}
	m, err := h.svc.MarkRead(c.Request().Context(), p.PharmacistID, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, m)
}
