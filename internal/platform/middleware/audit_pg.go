package middleware

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGAuditRecorder writes audit entries to the audit_log table.
type PGAuditRecorder struct {
	pool *pgxpool.Pool
}

func NewPGAuditRecorder(pool *pgxpool.Pool) *PGAuditRecorder {
	return &PGAuditRecorder{pool: pool}
}

func (r *PGAuditRecorder) RecordAccess(ctx context.Context, e AuditEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (pharmacist_id, pharmacy_id, role, method, path, status,
			duration_ms, request_id, remote_ip, user_agent, created_at)
		VALUES (NULLIF($1,'')::uuid, NULLIF($2,'')::uuid, NULLIF($3,''), $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.PharmacistID, e.PharmacyID, e.Role, e.Method, e.Path, e.StatusCode,
		e.Duration.Milliseconds(), e.RequestID, e.IPAddress, e.UserAgent, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert audit_log: %w", err)
	}
	return nil
}
