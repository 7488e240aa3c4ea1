package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SessionPath is where the gate accepts password submissions.
const SessionPath = "/api/v1/session"

// publicPaths are reachable while the gate is locked: the shell that draws
// the password form and the infrastructure probes.
var publicPaths = map[string]bool{
	"/":          true,
	"/static/*":  true,
	"/health":    true,
	"/health/db": true,
}

// AuthSkipper returns true for requests that must work without a session:
// public paths and the password submission itself.
func AuthSkipper(c echo.Context) bool {
	if c.Request().Method == http.MethodPost && c.Path() == SessionPath {
		return true
	}
	return publicPaths[c.Path()]
}

// IsPublicPath reports whether the given route path bypasses the gate.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
