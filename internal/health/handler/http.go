// Package handler serves liveness and readiness endpoints for load balancers
// and Kubernetes probes.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports backing-store reachability (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// Handler serves /healthz and /readyz.
type Handler struct {
	db Pinger
}

// NewHandler returns a health handler. db may be nil; readiness then skips
// the database check.
func NewHandler(db Pinger) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes registers the health routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}

// Healthz reports process liveness. Always 200 while the server is up.
func (h *Handler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports readiness to serve traffic. 503 when the database is not
// reachable.
func (h *Handler) Readyz(c echo.Context) error {
	body := map[string]string{"status": "ok", "database": "ok"}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), pingTimeout)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			body["status"] = "unavailable"
			body["database"] = "unreachable"
			return c.JSON(http.StatusServiceUnavailable, body)
		}
	} else {
		body["database"] = "skipped"
	}
	return c.JSON(http.StatusOK, body)
}
