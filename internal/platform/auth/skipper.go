package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are matched against the registered route pattern (c.Path()).
// The survey token is the only credential on the survey-session routes.
var publicPaths = map[string]bool{
	"/health":                                true,
	"/health/db":                             true,
	"/api/v1/auth/login":                     true,
	"/api/v1/auth/seed-dev":                  true,
	"/api/v1/survey-sessions/:token":         true,
	"/api/v1/survey-sessions/:token/answers": true,
}

// AuthSkipper returns true for requests whose route should skip authentication.
func AuthSkipper(c echo.Context) bool {
	return publicPaths[c.Path()]
}

func IsPublicPath(path string) bool {
	return publicPaths[path]
}
