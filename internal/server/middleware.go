package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"tenantauth/internal/audit"
	"tenantauth/internal/security"
)

// AuditLogger is the subset of the audit logger the middleware needs.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, ip, metadata string)
}

// RequestLogger returns middleware that logs one zerolog entry per request
// with method, path, status, duration, and client IP.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req := c.Request()
			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Dur("duration", time.Since(start)).
				Str("ip", c.RealIP()).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Msg("request")
			return nil
		}
	}
}

// Audit returns middleware that records an audit log entry after each
// mutating request. Health and dev routes are skipped, as are requests
// without a tenant header. Writes are best-effort inside the logger.
func Audit(l AuditLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)

			req := c.Request()
			switch req.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return err
			}
			path := req.URL.Path
			if path == "/healthz" || path == "/readyz" || strings.HasPrefix(path, "/dev/") {
				return err
			}
			tenantID := req.Header.Get("X-Tenant-ID")
			if tenantID == "" {
				return err
			}
			userID := ""
			if claims, ok := c.Get("auth.claims").(*security.AccessClaims); ok && claims != nil {
				userID = claims.Subject
			}
			ar := audit.ParseRoute(req.Method, path)
			l.LogEvent(req.Context(), tenantID, userID, ar.Action, ar.Resource, c.RealIP(), "")
			return err
		}
	}
}
