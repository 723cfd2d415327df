package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/platform/auth"
)

// AuditEntry records who called which API route and with what outcome.
// Path is the route pattern, so survey tokens are never stored.
type AuditEntry struct {
	PharmacistID string
	PharmacyID   string
	Role         string
	Method       string
	Path         string
	StatusCode   int
	Duration     time.Duration
	RequestID    string
	IPAddress    string
	UserAgent    string
	Timestamp    time.Time
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit logs every /api/v1 request and hands it to recorder when one is set.
// Recorder failures are logged and never fail the request.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditablePath(req.URL.Path) {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			entry := AuditEntry{
				Method:     req.Method,
				Path:       routePath(c),
				StatusCode: statusOf(c, err),
				Duration:   time.Since(start),
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				Timestamp:  start.UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			// handlers downstream may have replaced the request context
			if p, ok := auth.PrincipalFromContext(c.Request().Context()); ok {
				entry.PharmacistID = p.PharmacistID.String()
				entry.PharmacyID = p.PharmacyID.String()
				entry.Role = p.Role
			}

			if recorder != nil {
				// the request context may already be cancelled or timed out
				recCtx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), 2*time.Second)
				if recErr := recorder.RecordAccess(recCtx, entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
				cancel()
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("pharmacist_id", entry.PharmacistID).
				Str("pharmacy_id", entry.PharmacyID).
				Str("role", entry.Role).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Dur("duration", entry.Duration).
				Msg("api_access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/")
}
