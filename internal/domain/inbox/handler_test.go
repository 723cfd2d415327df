package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/nrft/nrft/internal/platform/auth"
)

func httpStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return 0
}

func withPharmacist(req *http.Request, id uuid.UUID) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{PharmacistID: id, PharmacyID: uuid.New()}))
}

func TestHandler_List(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	me := uuid.New()
	svc.Notify(context.Background(), []uuid.UUID{me}, TypeSurveyCompleted, SurveyCompletedMessage("이둘"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(withPharmacist(req, me), rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var msgs []Message
	json.Unmarshal(rec.Body.Bytes(), &msgs)
	if len(msgs) != 1 || msgs[0].Type != TypeSurveyCompleted {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_List_Unauthenticated(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	c := echo.New().NewContext(req, httptest.NewRecorder())
	if code := httpStatus(h.List(c)); code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", code)
	}
}

func TestHandler_MarkRead(t *testing.T) {
	svc, repo := newTestService()
	h := NewHandler(svc)
	e := echo.New()
	me := uuid.New()
	svc.Notify(context.Background(), []uuid.UUID{me}, TypeSurveyCompleted, "x")
	var id uuid.UUID
	for k := range repo.items {
		id = k
	}

	tests := []struct {
		name string
		as   uuid.UUID
		id   string
		want int
	}{
		{"owner", me, id.String(), http.StatusOK},
		{"someone else", uuid.New(), id.String(), http.StatusNotFound},
		{"malformed id", me, "abc", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(withPharmacist(req, tt.as), rec)
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			err := h.MarkRead(c)
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
