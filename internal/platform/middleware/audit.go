package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/filab/fi-dashboard/internal/platform/auth"
)

// AuditEntry records one read of patient data: which session looked at which
// health card number, through which route, and with what outcome.
type AuditEntry struct {
	SessionID  string
	HCN        string
	Action     string
	Route      string
	Method     string
	IPAddress  string
	UserAgent  string
	RequestID  string
	StatusCode int
	Timestamp  time.Time
}

// AuditRecorder persists audit entries somewhere other than the log.
type AuditRecorder interface {
	RecordAccess(entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(entry AuditEntry) error {
	return f(entry)
}

// auditedRoutes maps the routes that disclose patient data to an action.
var auditedRoutes = map[string]string{
	"/api/v1/patients":                  "list",
	"/api/v1/patients/:hcn":             "view_record",
	"/api/v1/patients/:hcn/chart":       "view_chart",
	"/api/v1/patients/:hcn/chart.png":   "export_png",
	"/api/v1/patients/:hcn/export.xlsx": "export_xlsx",
	"/api/v1/dashboard":                 "view_dashboard",
}

// Audit logs every request to a route in auditedRoutes after the handler
// runs. It must sit behind auth.RequireSession so the session id is known.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			action, ok := auditedRoutes[c.Path()]
			if !ok {
				return next(c)
			}

			err := next(c)

			req := c.Request()
			entry := AuditEntry{
				SessionID:  auth.SessionIDFromContext(req.Context()),
				HCN:        auditHCN(c),
				Action:     action,
				Route:      c.Path(),
				Method:     req.Method,
				IPAddress:  c.RealIP(),
				UserAgent:  req.UserAgent(),
				StatusCode: auditStatus(c, err),
				Timestamp:  time.Now().UTC(),
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}

			for _, r := range recorders {
				if r == nil {
					continue
				}
				if recErr := r.RecordAccess(entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "phi_audit").
				Str("request_id", entry.RequestID).
				Str("session_id", entry.SessionID).
				Str("hcn", entry.HCN).
				Str("action", entry.Action).
				Str("method", entry.Method).
				Str("route", entry.Route).
				Str("remote_ip", entry.IPAddress).
				Int("status", entry.StatusCode).
				Msg("phi_access")

			return err
		}
	}
}

// auditHCN finds the patient in the path, or in ?selected= for the dashboard.
func auditHCN(c echo.Context) string {
	if hcn := c.Param("hcn"); hcn != "" {
		return hcn
	}
	return c.QueryParam("selected")
}

// auditStatus reports the status the client will see. Errors returned by the
// handler are written later by echo's error handler.
func auditStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 500
}
