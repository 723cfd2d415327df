package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nrft/nrft/internal/platform/apperr"
	"github.com/nrft/nrft/internal/platform/db"
	"github.com/nrft/nrft/internal/platform/pii"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool      *pgxpool.Pool
	encryptor pii.FieldEncryptor
}

func NewRepo(pool *pgxpool.Pool, enc pii.FieldEncryptor) Repository {
	return &repoPG{pool: pool, encryptor: enc}
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, pharmacy_id, encrypted_name, encrypted_phone, display_name, phone_last4,
	gender, birth_year, tags, note, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	encName, err := r.encryptor.Encrypt(p.Name)
	if err != nil {
		return fmt.Errorf("patient create: encrypt name: %w", err)
	}
	encPhone, err := r.encryptor.Encrypt(p.Phone)
	if err != nil {
		return fmt.Errorf("patient create: encrypt phone: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}

	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patient (id, pharmacy_id, encrypted_name, encrypted_phone, display_name, phone_last4,
			gender, birth_year, tags, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		p.ID, p.PharmacyID, encName, encPhone, p.DisplayName, p.PhoneLast4,
		p.Gender, p.BirthYear, p.Tags, p.Note,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("patient create: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, pharmacyID, id uuid.UUID) (*Patient, error) {
	p, err := r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1 AND pharmacy_id = $2`, id, pharmacyID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("patient not found")
	}
	if err != nil {
		return nil, fmt.Errorf("patient get: %w", err)
	}
	return p, nil
}

// Update writes the mutable, non-encrypted columns.
func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	if p.Tags == nil {
		p.Tags = []string{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patient SET display_name = $3, gender = $4, birth_year = $5, tags = $6, note = $7, updated_at = now()
		WHERE id = $1 AND pharmacy_id = $2
		RETURNING updated_at`,
		p.ID, p.PharmacyID, p.DisplayName, p.Gender, p.BirthYear, p.Tags, p.Note,
	).Scan(&p.UpdatedAt)
	if db.IsNoRows(err) {
		return apperr.NotFound("patient not found")
	}
	if err != nil {
		return fmt.Errorf("patient update: %w", err)
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, pharmacyID uuid.UUID, f ListFilter) ([]*Patient, int, error) {
	where := []string{"pharmacy_id = $1"}
	args := []interface{}{pharmacyID}
	if f.Gender != "" {
		args = append(args, f.Gender)
		where = append(where, fmt.Sprintf("gender = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Q); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(display_name ILIKE $%d OR phone_last4 LIKE $%d)", n, n))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("patient count: %w", err)
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM patient WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		patientCols, cond, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("patient list: %w", err)
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("patient list: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *repoPG) scan(row pgx.Row) (*Patient, error) {
	var (
		p                 Patient
		encName, encPhone string
	)
	err := row.Scan(&p.ID, &p.PharmacyID, &encName, &encPhone, &p.DisplayName, &p.PhoneLast4,
		&p.Gender, &p.BirthYear, &p.Tags, &p.Note, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if p.Name, err = r.encryptor.Decrypt(encName); err != nil {
		return nil, fmt.Errorf("decrypt name: %w", err)
	}
	if p.Phone, err = r.encryptor.Decrypt(encPhone); err != nil {
		return nil, fmt.Errorf("decrypt phone: %w", err)
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
