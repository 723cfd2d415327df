package identity

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
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// -- Pharmacy Repository --

type pharmacyRepoPG struct {
	pool *pgxpool.Pool
}

func NewPharmacyRepo(pool *pgxpool.Pool) PharmacyRepository {
	return &pharmacyRepoPG{pool: pool}
}

func (r *pharmacyRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const pharmacyCols = `id, name, address, phone, brand_color, brand_logo_url, brand_tagline, created_at`

func (r *pharmacyRepoPG) Create(ctx context.Context, p *Pharmacy) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO pharmacy (id, name, address, phone, brand_color, brand_logo_url, brand_tagline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.Name, p.Address, p.Phone, p.BrandColor, p.BrandLogoURL, p.BrandTagline,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pharmacy: %w", err)
	}
	return nil
}

func (r *pharmacyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacy, error) {
	var p Pharmacy
	err := r.conn(ctx).QueryRow(ctx, `SELECT `+pharmacyCols+` FROM pharmacy WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Address, &p.Phone, &p.BrandColor, &p.BrandLogoURL, &p.BrandTagline, &p.CreatedAt,
	)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("pharmacy not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get pharmacy: %w", err)
	}
	return &p, nil
}

// -- Pharmacist Repository --

type pharmacistRepoPG struct {
	pool *pgxpool.Pool
}

func NewPharmacistRepo(pool *pgxpool.Pool) PharmacistRepository {
	return &pharmacistRepoPG{pool: pool}
}

func (r *pharmacistRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const pharmacistCols = `id, pharmacy_id, email, password_hash, name, role, is_active, created_at`

func scanPharmacist(row pgx.Row) (*Pharmacist, error) {
	var p Pharmacist
	err := row.Scan(&p.ID, &p.PharmacyID, &p.Email, &p.PasswordHash, &p.Name, &p.Role, &p.Active, &p.CreatedAt)
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("pharmacist not found")
	}
	if err != nil {
		return nil, fmt.Errorf("scan pharmacist: %w", err)
	}
	return &p, nil
}

func (r *pharmacistRepoPG) Create(ctx context.Context, p *Pharmacist) error {
	p.ID = uuid.New()
	p.Email = strings.ToLower(p.Email)
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO pharmacist (id, pharmacy_id, email, password_hash, name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.PharmacyID, p.Email, p.PasswordHash, p.Name, p.Role, p.Active,
	).Scan(&p.CreatedAt)
	if db.IsUniqueViolation(err, "pharmacist_email_key") {
		return apperr.Conflict("email already registered")
	}
	if err != nil {
		return fmt.Errorf("insert pharmacist: %w", err)
	}
	return nil
}

func (r *pharmacistRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Pharmacist, error) {
	return scanPharmacist(r.conn(ctx).QueryRow(ctx, `SELECT `+pharmacistCols+` FROM pharmacist WHERE id = $1`, id))
}

func (r *pharmacistRepoPG) GetByEmail(ctx context.Context, email string) (*Pharmacist, error) {
	return scanPharmacist(r.conn(ctx).QueryRow(ctx,
		`SELECT `+pharmacistCols+` FROM pharmacist WHERE email = $1`, strings.ToLower(email)))
}

func (r *pharmacistRepoPG) First(ctx context.Context) (*Pharmacist, error) {
	return scanPharmacist(r.conn(ctx).QueryRow(ctx,
		`SELECT `+pharmacistCols+` FROM pharmacist ORDER BY created_at LIMIT 1`))
}

func (r *pharmacistRepoPG) ListActiveIDs(ctx context.Context, pharmacyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id FROM pharmacist WHERE pharmacy_id = $1 AND is_active ORDER BY created_at`, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("list active pharmacists: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pharmacist id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
