// Command carga is the terminal front end of the Carga Slack dashboard.
//
//	carga login -u admin
//	carga dashboard --sort mc --desc
//	carga sites add --name "Loja A" --url https://docs.google.com/... \
//	    --investimento Investimento --receita Receita --roas ROAS --mc MC
//	carga logs --follow
package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cargaslack/carga/client"
	"github.com/cargaslack/carga/pkg/i18n"
)

// app is everything a subcommand needs, built once per invocation.
type app struct {
	out io.Writer

	verbose    bool
	configPath string
	serverURL  string
	language   string

	cfg     *cliConfig
	logger  *zap.Logger
	loc     *i18n.Localizer
	store   *client.FileStore
	nav     *client.RouteNavigator
	api     *client.API
	auth    *client.AuthService
	sites   *client.SitesService
	squads  *client.SquadsService
	users   *client.UsersService
	dash    *client.DashboardService
	session *client.Session
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "carga",
		Short:         "Carga Slack dashboard client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}
	root.SetOut(out)

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")
	root.PersistentFlags().StringVar(&a.configPath, "config", defaultConfigPath(), "config file")
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "API base URL (overrides server_url)")
	root.PersistentFlags().StringVar(&a.language, "lang", "", "pt or en (overrides language)")

	root.AddCommand(
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.passwdCmd(),
		a.dashboardCmd(),
		a.logsCmd(),
		a.processCmd(),
		a.sitesCmd(),
		a.squadsCmd(),
		a.usersCmd(),
		a.statusCmd(),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := loadCLIConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.serverURL != "" {
		cfg.ServerURL = a.serverURL
	}
	if a.language != "" {
		cfg.Language = a.language
	}
	a.cfg = cfg

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	if a.verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	a.logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	locales, err := fs.Sub(i18n.EmbeddedLocales, "locales")
	if err != nil {
		return err
	}
	if err := i18n.Load(locales, a.logger); err != nil {
		return err
	}
	a.loc = i18n.NewLocalizer(cfg.Language)

	a.store = client.NewFileStore(cfg.CredentialsPath)
	a.nav = client.NewRouteNavigator("/")
	a.api = client.NewAPI(a.store, a.nav, client.Options{
		BaseURL:  cfg.ServerURL,
		Language: cfg.Language,
		Logger:   a.logger,
	})
	a.auth = client.NewAuthService(a.api, a.store, a.nav)
	a.sites = client.NewSitesService(a.api)
	a.squads = client.NewSquadsService(a.api)
	a.users = client.NewUsersService(a.api)
	a.dash = client.NewDashboardService(a.api)
	a.session = client.NewSession(a.auth, a.store, a.nav, a.logger)
	a.api.OnUnauthorized(a.session.Invalidate)
	a.session.Hydrate()
	return nil
}

// requireSession fails fast when no credentials are stored.
func (a *app) requireSession() error {
	if !a.session.IsAuthenticated() {
		return errNotSignedIn
	}
	return nil
}

// requireAdmin mirrors the UI: write actions are hidden from viewers.
func (a *app) requireAdmin() error {
	if err := a.requireSession(); err != nil {
		return err
	}
	if !a.session.IsAdmin() {
		return errAdminOnly
	}
	return nil
}

// expired turns a request that bounced to the login route into an error.
func (a *app) expired() error {
	if a.nav.CurrentRoute() == client.LoginRoute {
		return errSessionExpired
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "carga:", err)
		stop()
		os.Exit(1)
	}
}
