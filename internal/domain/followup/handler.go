package followup

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
	g := api.Group("/follow-ups", auth.RequireRole(auth.RolePharmacist, auth.RolePharmacyAdmin))
	g.POST("/:assessmentId", h.Create)
	g.GET("/:assessmentId", h.List)
	g.PATCH("/items/:id", h.Update)
	g.POST("/items/:id/remind", h.Remind)
}

func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	return p, nil
}

func pathID(c echo.Context, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.HTTP(apperr.NotFound(what + " not found"))
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	assessmentID, err := pathID(c, "assessmentId", "assessment")
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	f, err := h.svc.Create(c.Request().Context(), p, assessmentID, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, f)
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	assessmentID, err := pathID(c, "assessmentId", "assessment")
	if err != nil {
		return err
	}
	items, err := h.svc.List(c.Request().Context(), p, assessmentID)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "follow-up")
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	f, err := h.svc.Update(c.Request().Context(), p, id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, f)
}

func (h *Handler) Remind(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "follow-up")
	if err != nil {
		return err
	}
	var req RemindRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	res, err := h.svc.Remind(c.Request().Context(), p, id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}
