package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cargaslack/carga/client"
	"github.com/cargaslack/carga/models"
)

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return id, nil
}

// failed prefers the expired-session error over the generic one.
func (a *app) failed(err error) error {
	if expired := a.expired(); expired != nil {
		return expired
	}
	return a.localize(err)
}

// localizedError prints the locale text of a client error and still
// matches it with errors.Is.
type localizedError struct {
	msg string
	err error
}

func (e *localizedError) Error() string { return e.msg }
func (e *localizedError) Unwrap() error { return e.err }

func (a *app) localize(err error) error {
	if key, ok := client.MessageKey(err); ok {
		return &localizedError{msg: a.loc.T(key), err: err}
	}
	return err
}

func (a *app) sitesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List and manage sites",
	}
	cmd.AddCommand(
		a.sitesListCmd(),
		a.sitesShowCmd(),
		a.sitesSaveCmd(false),
		a.sitesSaveCmd(true),
		a.sitesToggleCmd(),
		a.sitesDeleteCmd(),
		a.sitesTestCmd(),
		a.sitesHeadersCmd(),
	)
	return cmd
}

func siteRows(sites []models.Site) [][]string {
	rows := make([][]string, 0, len(sites))
	for _, s := range sites {
		squad := s.SquadName
		if squad == "" {
			squad = "-"
		}
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10), s.Name, squad, statusText(string(s.Status)),
			fmt.Sprintf("%d/%d/%d/%d", s.InvestimentoIdx, s.ReceitaIdx, s.RoasIdx, s.McIdx),
		})
	}
	return rows
}

var siteHeaders = []string{"ID", "Nome", "Squad", "Status", "Colunas (Inv/Rec/ROAS/MC)"}

func (a *app) sitesListCmd() *cobra.Command {
	var filter models.SiteFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sites, optionally filtered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			sites := a.sites.GetAll(cmd.Context(), filter)
			if err := a.expired(); err != nil {
				return err
			}
			a.printf("%s\n", renderTable(siteHeaders, siteRows(sites)))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Name, "name", "", "name contains")
	cmd.Flags().StringVar(&filter.Squad, "squad", "", "exact squad name")
	return cmd
}

func (a *app) siteByID(ctx context.Context, arg string) (*models.Site, error) {
	id, err := parseID(arg)
	if err != nil {
		return nil, err
	}
	site := a.sites.GetByID(ctx, id)
	if site == nil {
		return nil, a.failed(fmt.Errorf("site %d not found", id))
	}
	return site, nil
}

func (a *app) sitesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			site, err := a.siteByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			a.printf("%s\n%s\n", renderTable(siteHeaders, siteRows([]models.Site{*site})), site.SheetURL)
			return nil
		},
	}
}

// sitesSaveCmd is "add" or, with edit set, "edit <id>". Both run the
// two-step form: read the sheet headers, then map them by name.
func (a *app) sitesSaveCmd(edit bool) *cobra.Command {
	var (
		name, sheetURL, squad string
		inactive              bool
		mapping               client.Mapping
	)
	use, short, args := "add", "Create a site from a Google Sheet", cobra.NoArgs
	if edit {
		use, short, args = "edit <id>", "Change a site", cobra.ExactArgs(1)
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			ctx := cmd.Context()

			var existing *models.Site
			if edit {
				site, err := a.siteByID(ctx, args[0])
				if err != nil {
					return err
				}
				existing = site
			}

			form := client.NewSiteForm(existing, a.logger)
			flags := cmd.Flags()
			if flags.Changed("name") || !edit {
				form.Name = name
			}
			if flags.Changed("url") || !edit {
				form.SheetURL = sheetURL
			}
			if flags.Changed("squad") || !edit {
				form.SquadName = squad
			}
			if flags.Changed("inactive") || !edit {
				form.Status = models.SiteActive
				if inactive {
					form.Status = models.SiteInactive
				}
			}

			if !form.LoadHeaders(ctx, a.sites) {
				return a.failed(form.Err)
			}

			chosen := form.Mapping
			for flag, pick := range map[string]struct{ dst, value *string }{
				"investimento": {&chosen.Investimento, &mapping.Investimento},
				"receita":      {&chosen.Receita, &mapping.Receita},
				"roas":         {&chosen.Roas, &mapping.Roas},
				"mc":           {&chosen.Mc, &mapping.Mc},
			} {
				if flags.Changed(flag) {
					*pick.dst = *pick.value
				}
			}
			form.Mapping = chosen

			if !form.MapColumns(chosen) {
				a.printHeaders(form.Headers)
				return fmt.Errorf("%w: use --investimento --receita --roas --mc", a.localize(form.Err))
			}

			v := client.NewSitesView(a.sites, a.squads, 0)
			if !v.Save(ctx, form) {
				return a.failed(form.Err)
			}
			if edit {
				a.printf("Site %s updated\n", strings.TrimSpace(form.Name))
			} else {
				a.printf("Site %s created\n", strings.TrimSpace(form.Name))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "site name")
	f.StringVar(&sheetURL, "url", "", "Google Sheets URL")
	f.StringVar(&squad, "squad", "", "squad name, empty for none")
	f.BoolVar(&inactive, "inactive", false, "create the site paused")
	f.StringVar(&mapping.Investimento, "investimento", "", "header of the investment column")
	f.StringVar(&mapping.Receita, "receita", "", "header of the revenue column")
	f.StringVar(&mapping.Roas, "roas", "", "header of the ROAS column")
	f.StringVar(&mapping.Mc, "mc", "", "header of the margin column")
	return cmd
}

func (a *app) printHeaders(headers []models.SheetHeader) {
	rows := make([][]string, 0, len(headers))
	for _, h := range headers {
		rows = append(rows, []string{strconv.Itoa(h.Index), h.Name})
	}
	a.printf("%s\n", renderTable([]string{"Coluna", "Cabeçalho"}, rows))
}

func (a *app) sitesToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Switch a site between active and inactive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			site, err := a.siteByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			v := client.NewSitesView(a.sites, a.squads, 0)
			if !v.ToggleStatus(cmd.Context(), *site) {
				return a.failed(v.Error())
			}
			a.printf("Site %s is now %s\n", site.Name, statusText(string(site.Status.Toggle())))
			return nil
		},
	}
}

func (a *app) sitesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			site, err := a.siteByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			v := client.NewSitesView(a.sites, a.squads, 0)
			if !v.Delete(cmd.Context(), *site) {
				return a.failed(v.Error())
			}
			a.printf("Site %s deleted\n", site.Name)
			return nil
		},
	}
}

func (a *app) sitesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <name>",
		Short: "Read the mapped columns of the last data row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			result := a.sites.TestMapping(cmd.Context(), args[0])
			if result == nil {
				return a.failed(fmt.Errorf("mapping test for %s failed", args[0]))
			}
			rows := make([][]string, 0, len(result.Results))
			for _, r := range result.Results {
				rows = append(rows, []string{r.Metric, r.ColumnName, strconv.Itoa(r.Index), r.Value})
			}
			a.printf("%s (linha %d de %d)\n%s\n", result.Site, result.LastRow, result.TotalRows,
				renderTable([]string{"Métrica", "Coluna", "Índice", "Valor"}, rows))
			return nil
		},
	}
}

func (a *app) sitesHeadersCmd() *cobra.Command {
	var tab string
	cmd := &cobra.Command{
		Use:   "headers <sheet-url>",
		Short: "List the tabs and header row of a sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			var headers *models.SheetHeaders
			if tab != "" {
				headers = a.sites.GetSheetHeadersByName(cmd.Context(), args[0], tab)
			} else {
				headers = a.sites.GetSheetHeaders(cmd.Context(), args[0])
			}
			if headers == nil {
				return a.failed(client.ErrHeadersFailed)
			}
			tabs := make([]string, 0, len(headers.Sheets))
			for _, s := range headers.Sheets {
				tabs = append(tabs, s.Name)
			}
			a.printf("Abas: %s\n", strings.Join(tabs, ", "))
			a.printHeaders(headers.Headers)
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "", "tab name, defaults to the first tab")
	return cmd
}

func (a *app) squadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "squads",
		Short: "List and manage squads",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List squads with their sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireSession(); err != nil {
				return err
			}
			v := client.NewSquadsView(a.squads)
			v.Load(cmd.Context())
			if err := a.expired(); err != nil {
				return err
			}
			var rows [][]string
			for _, s := range v.Items() {
				webhook := "-"
				if s.WebhookURL != "" {
					webhook = "sim"
				}
				rows = append(rows, []string{s.Name, strconv.Itoa(s.SitesCount), webhook, strings.Join(s.Sites, ", ")})
			}
			a.printf("%s\n", renderTable([]string{"Squad", "Sites", "Webhook", "Lista"}, rows))
			return nil
		},
	}

	var webhook string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a squad",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			form := &client.SquadForm{Name: args[0], WebhookURL: webhook}
			if !client.NewSquadsView(a.squads).Save(cmd.Context(), form) {
				return a.failed(form.Err)
			}
			a.printf("Squad %s created\n", strings.TrimSpace(args[0]))
			return nil
		},
	}
	add.Flags().StringVar(&webhook, "webhook", "", "Slack incoming webhook URL")

	var renameWebhook string
	rename := &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a squad and optionally replace its webhook",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			form := &client.SquadForm{Original: args[0], Name: args[1], WebhookURL: renameWebhook}
			if !client.NewSquadsView(a.squads).Save(cmd.Context(), form) {
				return a.failed(form.Err)
			}
			a.printf("Squad %s renamed to %s\n", args[0], strings.TrimSpace(args[1]))
			return nil
		},
	}
	rename.Flags().StringVar(&renameWebhook, "webhook", "", "new webhook URL, empty removes it")

	rm := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a squad without sites",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			v := client.NewSquadsView(a.squads)
			if !v.Delete(cmd.Context(), args[0]) {
				return a.failed(v.Error())
			}
			a.printf("Squad %s deleted\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, add, rename, rm)
	return cmd
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage dashboard accounts (admin)",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			v := client.NewUsersView(a.users)
			v.Load(cmd.Context())
			if err := a.expired(); err != nil {
				return err
			}
			var rows [][]string
			for _, u := range v.Items() {
				email := "-"
				if u.Email != nil && *u.Email != "" {
					email = *u.Email
				}
				rows = append(rows, []string{strconv.FormatInt(u.ID, 10), u.Username, email, string(u.Role)})
			}
			a.printf("%s\n", renderTable([]string{"ID", "Username", "Email", "Perfil"}, rows))
			return nil
		},
	}

	var form client.UserForm
	var role string
	add := &cobra.Command{
		Use:   "add",
		Short: "Create a user with a generated password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			form.Role = models.Role(role)
			created := client.NewUsersView(a.users).Create(cmd.Context(), &form)
			if created == nil {
				return a.failed(form.Err)
			}
			name := form.Email
			if created.User != nil {
				name = created.User.Username
			}
			a.printf("User %s created. One-time password: %s\n", name, created.Password)
			return nil
		},
	}
	add.Flags().StringVar(&form.Email, "email", "", "email (required)")
	add.Flags().StringVar(&form.Username, "username", "", "username, defaults to the email")
	add.Flags().StringVar(&role, "role", string(models.RoleViewer), "admin or viewer")

	var edit struct {
		email, username, role, password string
	}
	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a user's email, username, role or password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			current := a.users.GetByID(cmd.Context(), id)
			if current == nil {
				return a.failed(fmt.Errorf("user %d not found", id))
			}

			f := client.UserForm{ID: id, Username: current.Username, Role: current.Role}
			if current.Email != nil {
				f.Email = *current.Email
			}
			flags := cmd.Flags()
			if flags.Changed("email") {
				f.Email = edit.email
			}
			if flags.Changed("username") {
				f.Username = edit.username
			}
			if flags.Changed("role") {
				f.Role = models.Role(edit.role)
			}
			f.Password = edit.password

			if !client.NewUsersView(a.users).Update(cmd.Context(), &f) {
				return a.failed(f.Err)
			}
			a.printf("User %d updated\n", id)
			return nil
		},
	}
	editCmd.Flags().StringVar(&edit.email, "email", "", "new email")
	editCmd.Flags().StringVar(&edit.username, "username", "", "new username")
	editCmd.Flags().StringVar(&edit.role, "role", "", "admin or viewer")
	editCmd.Flags().StringVar(&edit.password, "password", "", "new password")

	rm := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireAdmin(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v := client.NewUsersView(a.users)
			if !v.Delete(cmd.Context(), id) {
				return a.failed(v.Error())
			}
			a.printf("User %d deleted\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, add, editCmd, rm)
	return cmd
}
