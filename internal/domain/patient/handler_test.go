package patient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/auth"
	"github.com/nrft/nrft/pkg/pagination"
)

func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func authed(req *http.Request, p auth.Principal) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), p))
}

func TestHandler_Create(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	pr := testPrincipal()

	body := `{"name":"김하나","phone":"010-1234-5678","gender":"female","birthYear":1988}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(authed(req, pr), rec)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Patient
	json.Unmarshal(rec.Body.Bytes(), &p)
	if p.Name != "김하나" || p.PhoneLast4 != "5678" {
		t.Errorf("unexpected patient: %+v", p)
	}
	if strings.Contains(rec.Body.String(), pr.PharmacyID.String()) {
		t.Error("pharmacy id should not be serialized")
	}
}

func TestHandler_Create_Invalid(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{"name":"김"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(authed(req, testPrincipal()), httptest.NewRecorder())

	if code := httpStatus(h.Create(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_Create_Unauthenticated(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/patients", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	if code := httpStatus(h.Create(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandler_Get(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	pr := testPrincipal()
	p, err := svc.Create(context.Background(), pr, CreateRequest{Name: "김하나", Phone: "1234"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		id   string
		as   auth.Principal
		want int
	}{
		{"owner", p.ID.String(), pr, http.StatusOK},
		{"other pharmacy", p.ID.String(), testPrincipal(), http.StatusNotFound},
		{"unknown", uuid.NewString(), pr, http.StatusNotFound},
		{"malformed", "not-a-uuid", pr, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(authed(req, tt.as), rec)
			c.SetPath("/api/v1/patients/:id")
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			err := h.Get(c)
			code := rec.Code
			if err != nil {
				code = httpStatus(err)
			}
			if code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, code)
			}
		})
	}
}

func TestHandler_Update(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	pr := testPrincipal()
	p, _ := svc.Create(context.Background(), pr, CreateRequest{Name: "김하나", Phone: "1234"})

	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"note":"카페인 줄이기","tags":["수면"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(authed(req, pr), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Patient
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Note == nil || *got.Note != "카페인 줄이기" || len(got.Tags) != 1 {
		t.Errorf("unexpected patient: %+v", got)
	}
}

func TestHandler_List(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	pr := testPrincipal()
	for _, name := range []string{"김하나", "이둘", "박셋"} {
		if _, err := svc.Create(context.Background(), pr, CreateRequest{Name: name, Phone: "01000000000"}); err != nil {
			t.Fatal(err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(authed(req, pr), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp pagination.Response
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 3 || resp.Limit != 2 || !resp.HasMore {
		t.Errorf("unexpected page: %+v", resp)
	}
}
