package main

import (
	"github.com/cargaslack/carga/config"
	"github.com/cargaslack/carga/handlers"
	"github.com/cargaslack/carga/ws"
)

// Handlers holds one instance of every handler.
type Handlers struct {
	Auth      *handlers.AuthHandler
	User      *handlers.UserHandler
	Site      *handlers.SiteHandler
	Squad     *handlers.SquadHandler
	Sheet     *handlers.SheetHandler
	Dashboard *handlers.DashboardHandler
	Process   *handlers.ProcessHandler
	WS        *ws.Handler
}

func initHandlers(svcs *Services, limiters *RateLimiters, hub *ws.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:      handlers.NewAuthHandler(svcs.Auth, limiters.Login),
		User:      handlers.NewUserHandler(svcs.User),
		Site:      handlers.NewSiteHandler(svcs.Site),
		Squad:     handlers.NewSquadHandler(svcs.Squad),
		Sheet:     handlers.NewSheetHandler(svcs.Sheet),
		Dashboard: handlers.NewDashboardHandler(svcs.Dashboard),
		Process:   handlers.NewProcessHandler(svcs.Processing, limiters.Manual),
		WS:        ws.NewHandler(hub, svcs.Auth, cfg.CORS.AllowedOrigins),
	}
}
