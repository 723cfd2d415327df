package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/auth"
)

// MeasureDefinition is a dashboard query. Every SQL takes the caller's
// pharmacy id as $1 so a measure can never read another pharmacy's rows.
type MeasureDefinition struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	SQL         string `json:"-"`
}

type MeasureReport struct {
	MeasureID   string                   `json:"measureId"`
	MeasureName string                   `json:"measureName"`
	GeneratedAt time.Time                `json:"generatedAt"`
	Results     []map[string]interface{} `json:"results"`
}

var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "assessment-volume",
		Name:        "Assessment Volume",
		Description: "Assessments per day over the last 30 days",
		SQL: `SELECT (created_at AT TIME ZONE 'Asia/Seoul')::date AS day, COUNT(*) AS total
FROM assessment
WHERE pharmacy_id = $1 AND created_at >= now() - interval '30 days'
GROUP BY day ORDER BY day`,
	},
	{
		ID:          "health-type-distribution",
		Name:        "Health Type Distribution",
		Description: "Assessments grouped by health type",
		SQL:         `SELECT health_type, COUNT(*) AS total FROM assessment WHERE pharmacy_id = $1 GROUP BY health_type ORDER BY total DESC, health_type`,
	},
	{
		ID:          "session-funnel",
		Name:        "Survey Session Funnel",
		Description: "Survey sessions by status and channel",
		SQL:         `SELECT status, channel, COUNT(*) AS total FROM survey_session WHERE pharmacy_id = $1 GROUP BY status, channel ORDER BY status, channel`,
	},
	{
		ID:          "follow-up-status",
		Name:        "Follow-up Status",
		Description: "Follow-ups by status",
		SQL: `SELECT f.status, COUNT(*) AS total
FROM follow_up f JOIN assessment a ON a.id = f.assessment_id
WHERE a.pharmacy_id = $1
GROUP BY f.status ORDER BY f.status`,
	},
	{
		ID:          "average-scores",
		Name:        "Average Scores",
		Description: "Mean score per canonical axis",
		SQL: `SELECT COUNT(*) AS assessments,
	ROUND(AVG((scores->>'Sleep')::int)) AS sleep,
	ROUND(AVG((scores->>'Digestion')::int)) AS digestion,
	ROUND(AVG((scores->>'Energy')::int)) AS energy,
	ROUND(AVG((scores->>'Stress')::int)) AS stress,
	ROUND(AVG((scores->>'Immunity')::int)) AS immunity
FROM assessment WHERE pharmacy_id = $1`,
	},
}

func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}

// Querier is satisfied by *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Handler struct {
	db  Querier
	now func() time.Time
}

func NewHandler(db Querier) *Handler {
	return &Handler{db: db, now: time.Now}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reports", auth.RequireRole(auth.RolePharmacist, auth.RolePharmacyAdmin))
	g.GET("/measures", h.ListMeasures)
	g.GET("/measures/:id/evaluate", h.EvaluateMeasure)
}

func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

func (h *Handler) EvaluateMeasure(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return apperr.HTTP(apperr.Unauthorized("authentication required"))
	}
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return apperr.HTTP(apperr.NotFound("measure not found"))
	}

	results, err := h.execute(c.Request().Context(), measure.SQL, p.PharmacyID)
	if err != nil {
		return apperr.HTTP(apperr.Internal(fmt.Errorf("evaluate %s: %w", measure.ID, err)))
	}
	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: h.now().UTC(),
		Results:     results,
	})
}

func (h *Handler) execute(ctx context.Context, sql string, args ...any) ([]map[string]interface{}, error) {
	rows, err := h.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	results := []map[string]interface{}{}
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}
