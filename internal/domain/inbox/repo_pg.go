package inbox

import (
	"context"
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
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
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

const msgCols = `id, pharmacist_id, type, message, is_read, created_at`

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.PharmacistID, &m.Type, &m.Message, &m.IsRead, &m.CreatedAt)
	return &m, err
}

func (r *repoPG) CreateMany(ctx context.Context, msgs []*Message) error {
	if len(msgs) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, m := range msgs {
		m.ID = uuid.New()
		b.Queue(`INSERT INTO notification (id, pharmacist_id, type, message)
			VALUES ($1, $2, $3, $4) RETURNING is_read, created_at`,
			m.ID, m.PharmacistID, m.Type, m.Message)
	}
	br := r.conn(ctx).SendBatch(ctx, b)
	defer br.Close()
	for _, m := range msgs {
		if err := br.QueryRow().Scan(&m.IsRead, &m.CreatedAt); err != nil {
			return fmt.Errorf("notification create: %w", err)
		}
	}
	return nil
}

func (r *repoPG) ListByPharmacist(ctx context.Context, pharmacistID uuid.UUID, limit int) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+msgCols+` FROM notification
		WHERE pharmacist_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, pharmacistID, limit)
	if err != nil {
		return nil, fmt.Errorf("notification list: %w", err)
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("notification list: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, pharmacistID, id uuid.UUID) (*Message, error) {
	m, err := scanMessage(r.conn(ctx).QueryRow(ctx, `
		UPDATE notification SET is_read = true
		WHERE id = $1 AND pharmacist_id = $2
		RETURNING `+msgCols, id, pharmacistID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("notification mark read: %w", err)
	}
	return m, nil
}
