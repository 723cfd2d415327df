package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nrft/nrft/internal/config"
	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/internal/platform/db"
	"github.com/nrft/nrft/internal/platform/middleware"
)

func TestMigrationsFS_Embedded(t *testing.T) {
	migs, err := db.NewMigrator(nil, migrationsFS("")).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 4 {
		t.Fatalf("got %d embedded migrations, want 4", len(migs))
	}
	for i, m := range migs {
		if m.Version != i+1 {
			t.Errorf("migration %d has version %d", i, m.Version)
		}
		if m.DownSQL == "" {
			t.Errorf("migration %03d_%s has no down file", m.Version, m.Name)
		}
	}
}

func TestMigrationsFS_Dir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "001_only.sql"), []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}
	migs, err := db.NewMigrator(nil, migrationsFS(dir)).LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migs) != 1 || migs[0].Name != "001_only.sql" {
		t.Fatalf("got %+v, want the on-disk migration", migs)
	}
}

type auditSink struct {
	mu      sync.Mutex
	entries []middleware.AuditEntry
}

func (s *auditSink) RecordAccess(_ context.Context, e middleware.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func testServer() *echo.Echo {
	cfg := &config.Config{
		CORSOrigins:    []string{"https://survey.example.com"},
		BodyLimit:      "1M",
		RequestTimeout: 5 * time.Second,
	}
	jwtCfg := auth.JWTConfig{
		SigningKey: []byte("test-secret-test-secret-test-secret"),
		Issuer:     jwtIssuer,
		TTL:        time.Hour,
		Skipper:    auth.AuthSkipper,
	}
	e := newEcho(cfg, zerolog.Nop(), &auditSink{}, jwtCfg)
	e.GET("/api/v1/patients", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func TestNewEcho_Health(t *testing.T) {
	e := testServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" || body["version"] != version {
		t.Errorf("body = %v", body)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestNewEcho_StaffRouteNeedsToken(t *testing.T) {
	e := testServer()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/patients", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestNewEcho_CORS(t *testing.T) {
	e := testServer()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/patients", nil)
	req.Header.Set(echo.HeaderOrigin, "https://survey.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://survey.example.com" {
		t.Fatalf("allow origin = %q", got)
	}
}
