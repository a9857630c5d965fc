// Package server assembles the HTTP server: middleware, health probes, and
// the auth API routes.
package server

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// RouteRegistrar mounts a set of routes on an echo instance.
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo)
}

// Deps holds the route registrars and cross-cutting dependencies.
type Deps struct {
	// Auth is the auth HTTP API. If nil, no auth routes are mounted.
	Auth RouteRegistrar
	// Health serves /healthz and /readyz. If nil, no health routes are mounted.
	Health RouteRegistrar
	// Audit records mutating requests. If nil, no requests are audited.
	Audit AuditLogger
	// Log receives one entry per request.
	Log zerolog.Logger
}

// New builds the echo server with recovery, request IDs, request logging,
// and audit middleware, then mounts the given routes.
func New(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(RequestLogger(deps.Log))
	if deps.Audit != nil {
		e.Use(Audit(deps.Audit))
	}

	if deps.Health != nil {
		deps.Health.RegisterRoutes(e)
	}
	if deps.Auth != nil {
		deps.Auth.RegisterRoutes(e)
	}
	return e
}
