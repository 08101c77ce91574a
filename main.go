// Command carga-server is the Carga Slack API: it stores sites and squads,
// reads their spreadsheets on a schedule, posts summaries to Slack and
// serves the dashboard REST API plus a websocket feed of processing logs.
//
// Wire-up order:
//
//	config → logger → database → i18n → repositories → hub → services
//	→ handlers → routes → HTTP server → graceful shutdown
package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cargaslack/carga/config"
	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/middleware"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/pkg/metrics"
	"github.com/cargaslack/carga/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// No logger yet.
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to build logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("carga server starting", zap.Int("port", cfg.Server.Port))

	// ─── Database ───
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	if err != nil {
		return err
	}
	db, err := database.New(cfg.Database.Path, migrations, logger.Named("database"))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	// ─── i18n ───
	locales, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	if err != nil {
		return err
	}
	if err := i18n.Load(locales, logger.Named("i18n")); err != nil {
		return err
	}

	// ─── Layers ───
	repos := initRepositories(db.Conn)

	hub := ws.NewHub(logger.Named("ws"))
	go hub.Run()

	m := metrics.New()

	svcs, limiters, err := initServices(db.Conn, repos, hub, m, cfg, logger)
	if err != nil {
		return err
	}
	defer svcs.close()
	defer limiters.stop()

	if err := svcs.Auth.EnsureDefaultAdmin(context.Background()); err != nil {
		return err
	}

	h := initHandlers(svcs, limiters, hub, cfg)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, m)

	svcs.Processing.Start()

	// ─── CORS ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept-Language"},
		AllowCredentials: true,
	})

	// The websocket route skips the request logger; the upgrade needs the
	// raw ResponseWriter.
	root := http.NewServeMux()
	root.HandleFunc("GET /ws", h.WS.HandleConnection)
	root.Handle("/", middleware.RequestLogger(logger.Named("http"), m, mux))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      corsHandler.Handler(root),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// ─── Graceful shutdown ───
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")

	// Processing first so its last logs still reach connected clients.
	svcs.Processing.Stop()
	hub.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
