package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// Echo context keys read by the logger, audit and rate limit middleware.
const (
	EchoPharmacistIDKey = "pharmacist_id"
	EchoPharmacyIDKey   = "pharmacy_id"
)

const (
	RolePharmacist    = "PHARMACIST"
	RolePharmacyAdmin = "PHARMACY_ADMIN"
	RoleAdmin         = "ADMIN"
	RoleSystemAdmin   = "SYSTEM_ADMIN"
)

// Claims is the pharmacist access token payload. Subject is the pharmacist id.
type Claims struct {
	jwt.RegisteredClaims
	PharmacyID string `json:"pharmacyId"`
	Role       string `json:"role"`
}

// Principal is the authenticated pharmacist behind a request.
type Principal struct {
	PharmacistID uuid.UUID
	PharmacyID   uuid.UUID
	Role         string
}

// PrincipalResolver re-loads the principal on every request so deactivated
// pharmacists lose access before their token expires.
type PrincipalResolver interface {
	ResolvePrincipal(ctx context.Context, pharmacistID uuid.UUID) (*Principal, error)
}

type JWTConfig struct {
	SigningKey []byte
	Issuer     string
	TTL        time.Duration
	// Skipper bypasses authentication, e.g. AuthSkipper.
	Skipper func(c echo.Context) bool
	// Resolver is optional; when nil the token claims are trusted as-is.
	Resolver PrincipalResolver
}

// IssueToken signs an HS256 access token for p.
func IssueToken(cfg JWTConfig, p Principal, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(cfg.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.PharmacistID.String(),
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		PharmacyID: p.PharmacyID.String(),
		Role:       p.Role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			p, err := principalFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			if cfg.Resolver != nil {
				resolved, err := cfg.Resolver.ResolvePrincipal(ctx, p.PharmacistID)
				if err != nil || resolved == nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "account is inactive or no longer exists")
				}
				p = *resolved
			}

			c.Set(EchoPharmacistIDKey, p.PharmacistID.String())
			c.Set(EchoPharmacyIDKey, p.PharmacyID.String())
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

func principalFromClaims(claims *Claims) (Principal, error) {
	pharmacistID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, err
	}
	pharmacyID, err := uuid.Parse(claims.PharmacyID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{PharmacistID: pharmacistID, PharmacyID: pharmacyID, Role: claims.Role}, nil
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// RoleFromContext returns "" for anonymous requests.
func RoleFromContext(ctx context.Context) string {
	p, _ := PrincipalFromContext(ctx)
	return p.Role
}
