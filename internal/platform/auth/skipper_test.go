package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAuthSkipper(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/health", true},
		{"/health/db", true},
		{"/api/v1/auth/login", true},
		{"/api/v1/survey-sessions/:token", true},
		{"/api/v1/survey-sessions/:token/answers", true},
		{"/api/v1/survey-sessions", false},
		{"/api/v1/assessments/:id", false},
		{"/api/v1/auth/me", false},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
			c.SetPath(tt.path)
			if got := AuthSkipper(c); got != tt.want {
				t.Errorf("AuthSkipper(%q) = %v, want %v", tt.path, got, tt.want)
			}
			if IsPublicPath(tt.path) != tt.want {
				t.Errorf("IsPublicPath(%q) mismatch", tt.path)
			}
		})
	}
}
