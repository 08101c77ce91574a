package main

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/cargaslack/carga/config"
	"github.com/cargaslack/carga/pkg/crypto"
	"github.com/cargaslack/carga/pkg/email"
	"github.com/cargaslack/carga/pkg/metrics"
	"github.com/cargaslack/carga/pkg/ratelimit"
	"github.com/cargaslack/carga/pkg/sheets"
	"github.com/cargaslack/carga/pkg/slack"
	"github.com/cargaslack/carga/services"
	"github.com/cargaslack/carga/ws"
)

// Services holds one instance of every service.
type Services struct {
	Auth       services.AuthService
	User       services.UserService
	Site       services.SiteService
	Squad      services.SquadService
	Sheet      services.SheetService
	Dashboard  services.DashboardService
	Processing services.ProcessingService

	sheets *sheets.Client
}

func (s *Services) close() {
	s.sheets.Close()
}

// RateLimiters are shared between handlers and stopped on shutdown.
type RateLimiters struct {
	Login  *ratelimit.LoginRateLimiter
	Manual *ratelimit.CooldownLimiter
}

func (l *RateLimiters) stop() {
	l.Login.Stop()
	l.Manual.Stop()
}

func initServices(
	db *sql.DB,
	repos *Repositories,
	hub ws.EventPublisher,
	m *metrics.Metrics,
	cfg *config.Config,
	logger *zap.Logger,
) (*Services, *RateLimiters, error) {
	cipher, err := crypto.NewCipher(cfg.Security.EncryptionKey)
	if err != nil {
		return nil, nil, err
	}
	if cipher == nil {
		logger.Warn("ENCRYPTION_KEY not set, squad webhooks are stored in clear")
	}

	var mailer email.Sender
	if cfg.Email.Enabled() {
		mailer = email.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.FromEmail, cfg.Email.AppURL)
		logger.Info("email enabled", zap.String("from", cfg.Email.FromEmail))
	} else {
		logger.Info("email disabled (RESEND_API_KEY or RESEND_FROM not set)")
	}

	sheetClient := sheets.NewClient(cfg.Sheets.FetchTimeout, cfg.Sheets.CacheTTL, logger.Named("sheets"))

	authService := services.NewAuthService(
		repos.User, cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.RememberExpiry(), logger.Named("auth"),
	)
	userService := services.NewUserService(repos.User, mailer, logger.Named("users"))
	squadService := services.NewSquadService(repos.Squad, cipher, logger.Named("squads"))
	siteService := services.NewSiteService(db, repos.Site, sheetClient, logger.Named("sites"))
	sheetService := services.NewSheetService(sheetClient, logger.Named("sheets"))
	dashboardService := services.NewDashboardService(repos.Site, repos.Squad, repos.User, repos.Log)

	processingService := services.NewProcessingService(services.ProcessingDeps{
		Sites:     repos.Site,
		Logs:      repos.Log,
		Squads:    squadService,
		Reader:    sheetClient,
		Notifier:  slack.NewWebhookNotifier(cfg.Processing.SlackTimeout),
		Publisher: hub,
		Metrics:   m,
	}, cfg.Processing.Interval, cfg.Processing.Workers, logger.Named("processing"))

	svcs := &Services{
		Auth:       authService,
		User:       userService,
		Site:       siteService,
		Squad:      squadService,
		Sheet:      sheetService,
		Dashboard:  dashboardService,
		Processing: processingService,
		sheets:     sheetClient,
	}

	limiters := &RateLimiters{
		Login:  ratelimit.NewLoginRateLimiter(cfg.Security.LoginAttempts, cfg.Security.LoginWindow),
		Manual: ratelimit.NewCooldownLimiter(cfg.Processing.ManualCooldown),
	}

	return svcs, limiters, nil
}
