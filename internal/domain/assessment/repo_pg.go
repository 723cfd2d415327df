package assessment

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

const assessmentCols = `a.id, a.pharmacy_id, a.patient_id, a.session_id, a.selected_option_ids, a.scores,
	a.health_type, a.clusters, a.recommendations, a.status, a.ai_script, a.created_at, a.updated_at`

func scanInto(a *Assessment, extra ...interface{}) []interface{} {
	dest := []interface{}{&a.ID, &a.PharmacyID, &a.PatientID, &a.SessionID, &a.SelectedOptionIDs, &a.Scores,
		&a.HealthType, &a.Clusters, &a.Recommendations, &a.Status, &a.AIScript, &a.CreatedAt, &a.UpdatedAt}
	return append(dest, extra...)
}

func scanAssessment(row pgx.Row) (*Assessment, error) {
	var a Assessment
	if err := row.Scan(scanInto(&a)...); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	scores, err := json.Marshal(a.Scores)
	if err != nil {
		return fmt.Errorf("assessment create: %w", err)
	}
	clusters, err := json.Marshal(a.Clusters)
	if err != nil {
		return fmt.Errorf("assessment create: %w", err)
	}
	recs, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("assessment create: %w", err)
	}
	if a.SelectedOptionIDs == nil {
		a.SelectedOptionIDs = []string{}
	}

	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO assessment (id, pharmacy_id, patient_id, session_id, selected_option_ids, scores,
			health_type, clusters, recommendations, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		a.ID, a.PharmacyID, a.PatientID, a.SessionID, a.SelectedOptionIDs, scores,
		string(a.HealthType), clusters, recs, a.Status,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err, "assessment_session_id_key") {
		return apperr.Conflict("survey already completed")
	}
	if err != nil {
		return fmt.Errorf("assessment create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, pharmacyID, id uuid.UUID) (*Assessment, error) {
	a, err := scanAssessment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+assessmentCols+` FROM assessment a WHERE a.id = $1 AND a.pharmacy_id = $2`, id, pharmacyID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("assessment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("assessment get: %w", err)
	}
	return a, nil
}

func (r *repoPG) List(ctx context.Context, pharmacyID uuid.UUID, status string, limit int) ([]*ListItem, error) {
	args := []interface{}{pharmacyID, limit}
	cond := ""
	if status != "" {
		args = append(args, status)
		cond = " AND a.status = $3"
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assessmentCols+`,
			p.id, p.display_name, p.phone_last4,
			s.id, s.status, s.channel, s.expires_at, s.completed_at, s.created_at
		FROM assessment a
		JOIN patient p ON p.id = a.patient_id
		JOIN survey_session s ON s.id = a.session_id
		WHERE a.pharmacy_id = $1`+cond+`
		ORDER BY a.created_at DESC
		LIMIT $2`, args...)
	if err != nil {
		return nil, fmt.Errorf("assessment list: %w", err)
	}
	defer rows.Close()

	var out []*ListItem
	for rows.Next() {
		item := &ListItem{Assessment: &Assessment{}}
		err := rows.Scan(scanInto(item.Assessment,
			&item.Patient.ID, &item.Patient.DisplayName, &item.Patient.PhoneLast4,
			&item.Session.ID, &item.Session.Status, &item.Session.Channel, &item.Session.ExpiresAt,
			&item.Session.CompletedAt, &item.Session.CreatedAt)...)
		if err != nil {
			return nil, fmt.Errorf("assessment list: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *repoPG) ListByPatient(ctx context.Context, pharmacyID, patientID uuid.UUID) ([]*Assessment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+assessmentCols+` FROM assessment a
		WHERE a.patient_id = $1 AND a.pharmacy_id = $2
		ORDER BY a.created_at DESC`, patientID, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("assessment list by patient: %w", err)
	}
	defer rows.Close()

	var out []*Assessment
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("assessment list by patient: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repoPG) update(ctx context.Context, op, set string, args ...interface{}) (*Assessment, error) {
	a, err := scanAssessment(r.conn(ctx).QueryRow(ctx, `
		UPDATE assessment a SET `+set+`, updated_at = now()
		WHERE a.id = $1 AND a.pharmacy_id = $2
		RETURNING `+assessmentCols, args...))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("assessment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("assessment %s: %w", op, err)
	}
	return a, nil
}

func (r *repoPG) UpdateStatus(ctx context.Context, pharmacyID, id uuid.UUID, status string) (*Assessment, error) {
	return r.update(ctx, "update status", "status = $3", id, pharmacyID, status)
}

func (r *repoPG) SetAIScript(ctx context.Context, pharmacyID, id uuid.UUID, script string) (*Assessment, error) {
	return r.update(ctx, "set ai script", "ai_script = $3", id, pharmacyID, script)
}

func (r *repoPG) Session(ctx context.Context, sessionID uuid.UUID) (*SessionSummary, error) {
	var s SessionSummary
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT id, status, channel, expires_at, completed_at, created_at
		FROM survey_session WHERE id = $1`, sessionID,
	).Scan(&s.ID, &s.Status, &s.Channel, &s.ExpiresAt, &s.CompletedAt, &s.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("assessment session: %w", err)
	}
	return &s, nil
}
