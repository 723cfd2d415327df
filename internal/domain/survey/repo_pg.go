package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func connFrom(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepo(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

const templateCols = `id, name, description, type, version, base_template_id, is_active, created_at`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.Type, &t.Version, &t.BaseTemplateID, &t.Active, &t.CreatedAt)
	return &t, err
}

func (r *templateRepoPG) Create(ctx context.Context, t *Template) error {
	conn := connFrom(ctx, r.pool)
	t.ID = uuid.New()
	err := conn.QueryRow(ctx, `
		INSERT INTO survey_template (id, name, description, type, version, base_template_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		t.ID, t.Name, t.Description, t.Type, t.Version, t.BaseTemplateID, t.Active,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("template create: %w", err)
	}

	b := &pgx.Batch{}
	for i := range t.Questions {
		q := &t.Questions[i]
		q.ID = uuid.New()
		b.Queue(`INSERT INTO question (id, template_id, category, text, sort_order, type)
			VALUES ($1, $2, $3, $4, $5, $6)`, q.ID, t.ID, q.Category, q.Text, q.Order, q.Type)
		for j := range q.Options {
			o := &q.Options[j]
			o.ID = uuid.New()
			impact, err := json.Marshal(o.Impact)
			if err != nil {
				return fmt.Errorf("template create: option impact: %w", err)
			}
			b.Queue(`INSERT INTO question_option (id, question_id, text, sort_order, impact)
				VALUES ($1, $2, $3, $4, $5)`, o.ID, q.ID, o.Text, o.Order, impact)
		}
	}
	if err := conn.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("template create: questions: %w", err)
	}
	return nil
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := scanTemplate(connFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+templateCols+` FROM survey_template WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("survey template not found")
	}
	if err != nil {
		return nil, fmt.Errorf("template get: %w", err)
	}
	if err := r.loadQuestions(ctx, []*Template{t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *templateRepoPG) ListActive(ctx context.Context) ([]*Template, error) {
	rows, err := connFrom(ctx, r.pool).Query(ctx,
		`SELECT `+templateCols+` FROM survey_template WHERE is_active ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	var out []*Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("template list: %w", err)
		}
		out = append(out, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("template list: %w", err)
	}
	if err := r.loadQuestions(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *templateRepoPG) LatestByName(ctx context.Context, name string) (*Template, error) {
	t, err := scanTemplate(connFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+templateCols+` FROM survey_template WHERE name = $1 ORDER BY version DESC LIMIT 1`, name))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("template by name: %w", err)
	}
	return t, nil
}

// loadQuestions fills Questions (and their Options) in display order.
func (r *templateRepoPG) loadQuestions(ctx context.Context, templates []*Template) error {
	if len(templates) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*Template, len(templates))
	ids := make([]uuid.UUID, 0, len(templates))
	for _, t := range templates {
		t.Questions = []Question{}
		byID[t.ID] = t
		ids = append(ids, t.ID)
	}

	rows, err := connFrom(ctx, r.pool).Query(ctx, `
		SELECT q.template_id, q.id, q.category, q.text, q.sort_order, q.type,
			o.id, o.text, o.sort_order, o.impact
		FROM question q
		LEFT JOIN question_option o ON o.question_id = q.id
		WHERE q.template_id = ANY($1)
		ORDER BY q.template_id, q.sort_order, q.id, o.sort_order`, ids)
	if err != nil {
		return fmt.Errorf("template questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			templateID uuid.UUID
			q          Question
			optID      *uuid.UUID
			optText    *string
			optOrder   *int
			impact     []byte
		)
		if err := rows.Scan(&templateID, &q.ID, &q.Category, &q.Text, &q.Order, &q.Type,
			&optID, &optText, &optOrder, &impact); err != nil {
			return fmt.Errorf("template questions: %w", err)
		}
		t := byID[templateID]
		if n := len(t.Questions); n == 0 || t.Questions[n-1].ID != q.ID {
			q.Options = []Option{}
			t.Questions = append(t.Questions, q)
		}
		if optID == nil {
			continue
		}
		o := Option{ID: *optID, Text: *optText, Order: *optOrder}
		if len(impact) > 0 {
			if err := json.Unmarshal(impact, &o.Impact); err != nil {
				return fmt.Errorf("option %s impact: %w", o.ID, err)
			}
		}
		last := &t.Questions[len(t.Questions)-1]
		last.Options = append(last.Options, o)
	}
	return rows.Err()
}

// =========== Session Repository ===========

type sessionRepoPG struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) SessionRepository {
	return &sessionRepoPG{pool: pool}
}

const sessionCols = `id, token, template_id, patient_id, pharmacy_id, channel, delivery_address,
	status, expires_at, completed_at, created_at`

func (r *sessionRepoPG) Create(ctx context.Context, s *Session) error {
	s.ID = uuid.New()
	err := connFrom(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO survey_session (id, token, template_id, patient_id, pharmacy_id, channel,
			delivery_address, status, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		s.ID, s.Token, s.TemplateID, s.PatientID, s.PharmacyID, s.Channel,
		s.DeliveryAddress, s.Status, s.ExpiresAt,
	).Scan(&s.CreatedAt)
	if db.IsUniqueViolation(err, "survey_session_token_key") {
		return ErrTokenTaken
	}
	if err != nil {
		return fmt.Errorf("session create: %w", err)
	}
	return nil
}

func (r *sessionRepoPG) GetByToken(ctx context.Context, token string) (*Session, error) {
	var s Session
	err := connFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT `+sessionCols+` FROM survey_session WHERE token = $1`, token,
	).Scan(&s.ID, &s.Token, &s.TemplateID, &s.PatientID, &s.PharmacyID, &s.Channel,
		&s.DeliveryAddress, &s.Status, &s.ExpiresAt, &s.CompletedAt, &s.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}
	return &s, nil
}

func (r *sessionRepoPG) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := connFrom(ctx, r.pool).Exec(ctx,
		`UPDATE survey_session SET status = 'EXPIRED' WHERE id = $1 AND status = 'PENDING'`, id)
	if err != nil {
		return false, fmt.Errorf("session expire: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *sessionRepoPG) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	tag, err := connFrom(ctx, r.pool).Exec(ctx, `
		UPDATE survey_session SET status = 'COMPLETED', completed_at = $2
		WHERE id = $1 AND status = 'PENDING' AND expires_at > $2`, id, now)
	if err != nil {
		return false, fmt.Errorf("session claim: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *sessionRepoPG) SaveAnswers(ctx context.Context, answers []Answer) error {
	if len(answers) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, a := range answers {
		b.Queue(`INSERT INTO answer (session_id, question_id, option_ids, sort_order)
			VALUES ($1, $2, $3, $4)`, a.SessionID, a.QuestionID, a.OptionIDs, a.Order)
	}
	if err := connFrom(ctx, r.pool).SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("answers save: %w", err)
	}
	return nil
}
