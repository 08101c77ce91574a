package main

import (
	"net/http"

	"github.com/cargaslack/carga/handlers"
	"github.com/cargaslack/carga/middleware"
	"github.com/cargaslack/carga/pkg/metrics"
	"github.com/cargaslack/carga/services"
)

// initRoutes registers every /api endpoint plus /metrics. Reads and manual
// runs need a signed-in user; catalog writes and the users area need an
// admin.
//
// Literal segments must not collide with wildcards of the same depth:
// /api/sites/test/{name} is one level deeper than /api/sites/{ref}.
func initRoutes(mux *http.ServeMux, h *Handlers, authService services.AuthService, m *metrics.Metrics) {
	authMw := middleware.NewAuthMiddleware(authService)
	adminMw := middleware.NewAdminMiddleware()

	auth := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(handler)
	}
	admin := func(handler http.HandlerFunc) http.Handler {
		return authMw.Require(adminMw.Require(handler))
	}

	mux.HandleFunc("GET /api/health", handlers.Health)
	mux.Handle("GET /metrics", m.Handler())

	// Auth
	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.Handle("GET /api/auth/verify", auth(h.Auth.Verify))
	mux.Handle("GET /api/auth/me", auth(h.Auth.Me))
	mux.Handle("POST /api/auth/change-password", auth(h.Auth.ChangePassword))

	// Users
	mux.Handle("GET /api/users", admin(h.User.List))
	mux.Handle("GET /api/users/{id}", admin(h.User.Get))
	mux.Handle("POST /api/users", admin(h.User.Create))
	mux.Handle("PUT /api/users/{id}", admin(h.User.Update))
	mux.Handle("DELETE /api/users/{id}", admin(h.User.Delete))

	// Sites
	mux.Handle("GET /api/sites", auth(h.Site.List))
	mux.Handle("GET /api/sites/test/{name}", auth(h.Site.TestMapping))
	mux.Handle("GET /api/sites/{ref}", auth(h.Site.Get))
	mux.Handle("POST /api/sites", admin(h.Site.Create))
	mux.Handle("PUT /api/sites/{ref}", admin(h.Site.Update))
	mux.Handle("DELETE /api/sites/{ref}", admin(h.Site.Delete))

	// Sheets
	mux.Handle("POST /api/sheets/headers", auth(h.Sheet.Headers))
	mux.Handle("POST /api/sheets/headers/{sheet_name}", auth(h.Sheet.HeadersForTab))

	// Squads
	mux.Handle("GET /api/squads", auth(h.Squad.List))
	mux.Handle("POST /api/squads", admin(h.Squad.Create))
	mux.Handle("PUT /api/squads/{name}", admin(h.Squad.Update))
	mux.Handle("DELETE /api/squads/{name}", admin(h.Squad.Delete))

	// Dashboard & processing
	mux.Handle("GET /api/dashboard/stats", auth(h.Dashboard.Stats))
	mux.Handle("GET /api/dashboard/logs", auth(h.Dashboard.Logs))
	mux.Handle("POST /api/process/manual", auth(h.Process.Manual))
}
