package survey

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

// RegisterRoutes mounts the pharmacist routes and the token routes.
// publicMW wraps only the token routes, which carry no JWT.
func (h *Handler) RegisterRoutes(api *echo.Group, publicMW ...echo.MiddlewareFunc) {
	staff := auth.RequireRole(auth.RolePharmacist, auth.RolePharmacyAdmin)

	templates := api.Group("/survey-templates")
	templates.GET("", h.ListTemplates, staff)
	templates.GET("/:id", h.GetTemplate, staff)
	templates.POST("", h.CreateTemplate, auth.RequireRole(auth.RolePharmacyAdmin))

	sessions := api.Group("/survey-sessions")
	sessions.POST("", h.Issue, staff)
	sessions.GET("/:token", h.Fetch, publicMW...)
	sessions.POST("/:token/answers", h.Submit, publicMW...)
}

func (h *Handler) ListTemplates(c echo.Context) error {
	out, err := h.svc.ListTemplates(c.Request().Context())
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) GetTemplate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.HTTP(apperr.NotFound("survey template not found"))
	}
	t, err := h.svc.GetTemplate(c.Request().Context(), id)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) CreateTemplate(c echo.Context) error {
	var req CreateTemplateRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	t, err := h.svc.CreateTemplate(c.Request().Context(), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) Issue(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	var req IssueRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	res, err := h.svc.Issue(c.Request().Context(), p, req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) Fetch(c echo.Context) error {
	view, err := h.svc.FetchByToken(c.Request().Context(), c.Param("token"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) Submit(c echo.Context) error {
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return apperr.HTTP(apperr.Validation("invalid request body", nil))
	}
	res, err := h.svc.Submit(c.Request().Context(), c.Param("token"), req)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}
