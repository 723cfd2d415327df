package assessment

import (
	"bytes"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/reporting"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RolePharmacist, auth.RolePharmacyAdmin)

	g := api.Group("/assessments", staff)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.POST("/:id/ai-script", h.GenerateAIScript)
	g.GET("/:id/report.html", h.Report)

	api.GET("/patients/:id/timeline", h.Timeline, staff)
}

func principal(c echo.Context) (auth.Principal, error) {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return auth.Principal{}, apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	return p, nil
}

func pathID(c echo.Context, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.HTTP(apperr.NotFound(what + " not found"))
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	out, err := h.svc.List(c.Request().Context(), p, c.QueryParam("status"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assessment")
	if err != nil {
		return err
	}
	d, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assessment")
	if err != nil {
		return err
	}
	var req StatusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	a, err := h.svc.UpdateStatus(c.Request().Context(), p, id, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) GenerateAIScript(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assessment")
	if err != nil {
		return err
	}
	res, err := h.svc.GenerateAIScript(c.Request().Context(), p, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Report(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "assessment")
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	typ := reporting.ParseReportType(c.QueryParam("type"))
	if err := h.svc.Report(c.Request().Context(), p, id, typ, &buf); err != nil {
		return apperr.HTTP(err)
	}
	return c.HTMLBlob(http.StatusOK, buf.Bytes())
}

func (h *Handler) Timeline(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "patient")
	if err != nil {
		return err
	}
	events, err := h.svc.Timeline(c.Request().Context(), p, id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, events)
}
