package client

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/bep/debounce"
	"golang.org/x/sync/errgroup"

	"github.com/cargaslack/carga/dashboard"
	"github.com/cargaslack/carga/models"
)

// DefaultFilterDebounce delays site reloads while filters are being typed.
const DefaultFilterDebounce = 500 * time.Millisecond

// Mutation failures. The lists keep their last contents.
var (
	ErrSaveFailed   = errors.New("save failed")
	ErrDeleteFailed = errors.New("delete failed")
	ErrUpdateFailed = errors.New("status update failed")
)

// mount loads once, then again on every refresh key until ctx is done.
// The returned channel closes when the loop has exited.
func mount(ctx context.Context, r *Refresher, load func(context.Context)) <-chan struct{} {
	keys, cancel := r.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()

		load(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-keys:
				if !ok {
					return
				}
				load(ctx)
			}
		}
	}()
	return done
}

// listState is the loading/error/items triple every list page keeps.
type listState[T any] struct {
	mu      sync.RWMutex
	items   []T
	loading bool
	err     error
}

// Items returns a copy of the current list.
func (s *listState[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *listState[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Error is the inline error of the last mutation, if it failed.
func (s *listState[T]) Error() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *listState[T]) begin() {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()
}

func (s *listState[T]) finish(items []T) {
	s.mu.Lock()
	s.items = items
	s.loading = false
	s.mu.Unlock()
}

func (s *listState[T]) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// DashboardView is the landing page: stats, the Top-3 margin ranking,
// the squad rollups and the sortable log table.
type DashboardView struct {
	sites      *SitesService
	dash       *DashboardService
	unassigned string
	limit      int

	mu       sync.RWMutex
	loading  bool
	siteList []models.Site
	logs     []models.ProcessingLog
	stats    *models.DashboardStats
	summary  dashboard.Summary
	resolver *dashboard.SquadResolver
	sorter   *dashboard.Sorter
}

// NewDashboardView labels sites without a squad with unassigned.
func NewDashboardView(sites *SitesService, dash *DashboardService, unassigned string) *DashboardView {
	return &DashboardView{
		sites:      sites,
		dash:       dash,
		unassigned: unassigned,
		limit:      DefaultLogLimit,
		sorter:     dashboard.NewSorter(),
		resolver:   dashboard.NewSquadResolver(nil, unassigned),
	}
}

// SetLogLimit changes how many log rows Load asks for.
func (v *DashboardView) SetLogLimit(limit int) {
	v.mu.Lock()
	v.limit = limit
	v.mu.Unlock()
}

// Load fetches sites, logs and stats concurrently and derives the summary
// once all of them have settled.
func (v *DashboardView) Load(ctx context.Context) {
	v.mu.Lock()
	v.loading = true
	limit := v.limit
	v.mu.Unlock()

	var (
		sites []models.Site
		logs  []models.ProcessingLog
		stats *models.DashboardStats
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sites = v.sites.GetAll(gctx, models.SiteFilter{})
		return nil
	})
	g.Go(func() error {
		logs = v.dash.GetLogs(gctx, limit)
		return nil
	})
	g.Go(func() error {
		stats = v.dash.GetStats(gctx)
		return nil
	})
	_ = g.Wait()

	summary := dashboard.Compute(sites, logs, v.unassigned)
	resolver := dashboard.NewSquadResolver(sites, v.unassigned)

	v.mu.Lock()
	v.siteList = sites
	v.logs = logs
	v.stats = stats
	v.summary = summary
	v.resolver = resolver
	v.loading = false
	v.mu.Unlock()
}

func (v *DashboardView) Mount(ctx context.Context, r *Refresher) <-chan struct{} {
	return mount(ctx, r, v.Load)
}

func (v *DashboardView) Loading() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.loading
}

func (v *DashboardView) Summary() dashboard.Summary {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.summary
}

// Stats may be nil when the stats call failed.
func (v *DashboardView) Stats() *models.DashboardStats {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.stats
}

// Logs returns the log table in the current sort order.
func (v *DashboardView) Logs() []models.ProcessingLog {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sorter.Sort(v.logs, v.resolver)
}

// SquadOf resolves the squad column of a log row.
func (v *DashboardView) SquadOf(log models.ProcessingLog) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.resolver.Bucket(log.SiteName)
}

// SortBy behaves like a header click.
func (v *DashboardView) SortBy(column dashboard.Column) {
	v.mu.Lock()
	v.sorter.Click(column)
	v.mu.Unlock()
}

// Sort reports the current column and direction.
func (v *DashboardView) Sort() (dashboard.Column, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.sorter.Column, v.sorter.Desc
}

func (v *DashboardView) TriggerProcessing(ctx context.Context) bool {
	return v.dash.TriggerManualProcessing(ctx)
}

// SitesView is the site catalog page.
type SitesView struct {
	listState[models.Site]

	sites     *SitesService
	squads    *SquadsService
	debounced func(func())

	fmu       sync.RWMutex
	filter    models.SiteFilter
	squadList []models.Squad
}

// NewSitesView uses DefaultFilterDebounce when debounceWindow is not
// positive.
func NewSitesView(sites *SitesService, squads *SquadsService, debounceWindow time.Duration) *SitesView {
	if debounceWindow <= 0 {
		debounceWindow = DefaultFilterDebounce
	}
	return &SitesView{
		sites:     sites,
		squads:    squads,
		debounced: debounce.New(debounceWindow),
	}
}

// Load reads the squad list for the filter options and the filtered
// site list.
func (v *SitesView) Load(ctx context.Context) {
	v.begin()
	filter := v.Filter()

	var (
		sites  []models.Site
		squads []models.Squad
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sites = v.sites.GetAll(gctx, filter)
		return nil
	})
	g.Go(func() error {
		squads = v.squads.GetAll(gctx)
		return nil
	})
	_ = g.Wait()

	v.fmu.Lock()
	v.squadList = squads
	v.fmu.Unlock()
	v.finish(sites)
}

func (v *SitesView) Mount(ctx context.Context, r *Refresher) <-chan struct{} {
	return mount(ctx, r, v.Load)
}

// SetFilter reloads after the typing pause. Only the last call of a burst
// reaches the server.
func (v *SitesView) SetFilter(ctx context.Context, name, squad string) {
	v.fmu.Lock()
	v.filter = models.SiteFilter{Name: name, Squad: squad}
	v.fmu.Unlock()

	v.debounced(func() {
		if ctx.Err() != nil {
			return
		}
		v.Load(ctx)
	})
}

func (v *SitesView) Filter() models.SiteFilter {
	v.fmu.RLock()
	defer v.fmu.RUnlock()
	return v.filter
}

// Squads is the squad list loaded alongside the sites.
func (v *SitesView) Squads() []models.Squad {
	v.fmu.RLock()
	defer v.fmu.RUnlock()
	return slices.Clone(v.squadList)
}

// Save submits a SiteForm. On failure the form keeps its state and carries
// the inline error.
func (v *SitesView) Save(ctx context.Context, form *SiteForm) bool {
	if !form.MapColumns(form.Mapping) {
		return false
	}

	var saved *models.Site
	if editing := form.Editing(); editing != nil {
		saved = v.sites.Update(ctx, editing.ID, form.UpdateRequest())
	} else {
		saved = v.sites.Create(ctx, form.Request())
	}
	if saved == nil {
		form.Err = ErrSaveFailed
		return false
	}
	v.Load(ctx)
	return true
}

// ToggleStatus flips active/inactive, resending the whole site.
func (v *SitesView) ToggleStatus(ctx context.Context, site models.Site) bool {
	status := site.Status.Toggle()
	req := &models.UpdateSiteRequest{
		Name:            &site.Name,
		SheetURL:        &site.SheetURL,
		SquadName:       &site.SquadName,
		Status:          &status,
		InvestimentoIdx: &site.InvestimentoIdx,
		ReceitaIdx:      &site.ReceitaIdx,
		RoasIdx:         &site.RoasIdx,
		McIdx:           &site.McIdx,
	}
	if v.sites.Update(ctx, site.ID, req) == nil {
		v.setErr(ErrUpdateFailed)
		return false
	}
	v.setErr(nil)
	v.Load(ctx)
	return true
}

func (v *SitesView) Delete(ctx context.Context, site models.Site) bool {
	if !v.sites.Delete(ctx, site.ID) {
		v.setErr(ErrDeleteFailed)
		return false
	}
	v.setErr(nil)
	v.Load(ctx)
	return true
}

// SquadsView is the squad page.
type SquadsView struct {
	listState[models.Squad]
	squads *SquadsService
}

func NewSquadsView(squads *SquadsService) *SquadsView {
	return &SquadsView{squads: squads}
}

func (v *SquadsView) Load(ctx context.Context) {
	v.begin()
	v.finish(v.squads.GetAll(ctx))
}

func (v *SquadsView) Mount(ctx context.Context, r *Refresher) <-chan struct{} {
	return mount(ctx, r, v.Load)
}

// Save creates, or renames when form.Original is set.
func (v *SquadsView) Save(ctx context.Context, form *SquadForm) bool {
	if !form.Validate() {
		return false
	}
	var saved *models.Squad
	if form.Original != "" {
		saved = v.squads.Update(ctx, form.Original, form.UpdateRequest())
	} else {
		saved = v.squads.Create(ctx, form.CreateRequest())
	}
	if saved == nil {
		form.Err = ErrSaveFailed
		return false
	}
	v.Load(ctx)
	return true
}

func (v *SquadsView) Delete(ctx context.Context, name string) bool {
	if !v.squads.Delete(ctx, name) {
		v.setErr(ErrDeleteFailed)
		return false
	}
	v.setErr(nil)
	v.Load(ctx)
	return true
}

// UsersView is the admin user page.
type UsersView struct {
	listState[models.User]
	users *UsersService
}

func NewUsersView(users *UsersService) *UsersView {
	return &UsersView{users: users}
}

func (v *UsersView) Load(ctx context.Context) {
	v.begin()
	v.finish(v.users.GetAll(ctx))
}

func (v *UsersView) Mount(ctx context.Context, r *Refresher) <-chan struct{} {
	return mount(ctx, r, v.Load)
}

// Create returns the one-time password screen data, or nil with form.Err
// set.
func (v *UsersView) Create(ctx context.Context, form *UserForm) *models.CreatedUser {
	if !form.Validate() {
		return nil
	}
	created := v.users.Create(ctx, form.CreateRequest())
	if created == nil {
		form.Err = ErrSaveFailed
		return nil
	}
	v.Load(ctx)
	return created
}

func (v *UsersView) Update(ctx context.Context, form *UserForm) bool {
	if !form.Validate() {
		return false
	}
	if v.users.Update(ctx, form.ID, form.UpdateRequest()) == nil {
		form.Err = ErrSaveFailed
		return false
	}
	v.Load(ctx)
	return true
}

func (v *UsersView) Delete(ctx context.Context, id int64) bool {
	if !v.users.Delete(ctx, id) {
		v.setErr(ErrDeleteFailed)
		return false
	}
	v.setErr(nil)
	v.Load(ctx)
	return true
}
