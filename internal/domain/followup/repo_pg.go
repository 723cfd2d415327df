package followup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const fuCols = `f.id, f.assessment_id, f.next_visit_date, f.status, f.checklist, f.assignee, f.created_at, f.updated_at`

func scanFollowUp(row pgx.Row) (*FollowUp, error) {
	var f FollowUp
	err := row.Scan(&f.ID, &f.AssessmentID, &f.NextVisitDate, &f.Status, &f.Checklist,
		&f.Assignee, &f.CreatedAt, &f.UpdatedAt)
	if f.Checklist == nil {
		f.Checklist = []string{}
	}
	return &f, err
}

func checklistJSON(items []string) ([]byte, error) {
	if items == nil {
		items = []string{}
	}
	return json.Marshal(items)
}

func (r *repoPG) Create(ctx context.Context, f *FollowUp) error {
	f.ID = uuid.New()
	checklist, err := checklistJSON(f.Checklist)
	if err != nil {
		return fmt.Errorf("follow-up create: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO follow_up (id, assessment_id, next_visit_date, status, checklist, assignee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		f.ID, f.AssessmentID, f.NextVisitDate, f.Status, checklist, f.Assignee,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("follow-up create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, pharmacyID, id uuid.UUID) (*FollowUp, error) {
	f, err := scanFollowUp(r.conn(ctx).QueryRow(ctx, `
		SELECT `+fuCols+`
		FROM follow_up f JOIN assessment a ON a.id = f.assessment_id
		WHERE f.id = $1 AND a.pharmacy_id = $2`, id, pharmacyID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("follow-up not found")
	}
	if err != nil {
		return nil, fmt.Errorf("follow-up get: %w", err)
	}
	return f, nil
}

func (r *repoPG) Update(ctx context.Context, f *FollowUp) error {
	checklist, err := checklistJSON(f.Checklist)
	if err != nil {
		return fmt.Errorf("follow-up update: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE follow_up SET next_visit_date = $2, status = $3, checklist = $4, assignee = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`,
		f.ID, f.NextVisitDate, f.Status, checklist, f.Assignee,
	).Scan(&f.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("follow-up not found")
	}
	if err != nil {
		return fmt.Errorf("follow-up update: %w", err)
	}
	return nil
}

func (r *repoPG) list(ctx context.Context, sql string, args ...interface{}) ([]*FollowUp, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("follow-up list: %w", err)
	}
	defer rows.Close()

	var out []*FollowUp
	for rows.Next() {
		f, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("follow-up list: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *repoPG) ListByAssessment(ctx context.Context, assessmentID uuid.UUID) ([]*FollowUp, error) {
	return r.list(ctx, `SELECT `+fuCols+` FROM follow_up f
		WHERE f.assessment_id = $1
		ORDER BY f.next_visit_date ASC`, assessmentID)
}

func (r *repoPG) ListByPatient(ctx context.Context, pharmacyID, patientID uuid.UUID) ([]*FollowUp, error) {
	return r.list(ctx, `SELECT `+fuCols+`
		FROM follow_up f JOIN assessment a ON a.id = f.assessment_id
		WHERE a.patient_id = $1 AND a.pharmacy_id = $2
		ORDER BY f.created_at DESC`, patientID, pharmacyID)
}

func (r *repoPG) Assessment(ctx context.Context, pharmacyID, assessmentID uuid.UUID) (*AssessmentRef, error) {
	var a AssessmentRef
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, pharmacy_id, patient_id, health_type FROM assessment
		WHERE id = $1 AND pharmacy_id = $2`, assessmentID, pharmacyID,
	).Scan(&a.ID, &a.PharmacyID, &a.PatientID, &a.HealthType)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("assessment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("follow-up assessment lookup: %w", err)
	}
	return &a, nil
}

func (r *repoPG) TemplateFor(ctx context.Context, healthType string) (*Template, error) {
	t := Template{HealthType: healthType}
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT checklist, offset_days FROM follow_up_template WHERE health_type = $1`, healthType,
	).Scan(&t.Checklist, &t.OffsetDays)
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("follow-up template: %w", err)
	}
	return &t, nil
}
