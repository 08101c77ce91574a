package client

import (
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/dashboard"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
)

type catalog struct {
	siteLoads  atomic.Int32
	logLoads   atomic.Int32
	lastFilter atomic.Value
	updates    atomic.Int32
	failWrites atomic.Bool
}

func (c *catalog) mux() *http.ServeMux {
	sites := []models.Site{
		{ID: 1, Name: "Loja A", SquadName: "Alpha", Status: models.SiteActive},
		{ID: 2, Name: "Loja B", SquadName: "Beta", Status: models.SiteInactive, InvestimentoIdx: 1, ReceitaIdx: 2, RoasIdx: 3, McIdx: 4},
		{ID: 3, Name: "Loja C", Status: models.SiteActive},
	}
	logs := []models.ProcessingLog{
		{ID: 4, SiteName: "Loja A", Status: models.LogSuccess, Message: "Inv: R$ 100,00 | Rec: R$ 300,00 | ROAS: 3,00 | MC: R$ 200,00", CreatedAt: time.Unix(400, 0)},
		{ID: 3, SiteName: "Loja B", Status: models.LogSuccess, Message: "Inv: R$ 100,00 | Rec: R$ 150,00 | ROAS: 1,50 | MC: R$ 50,00", CreatedAt: time.Unix(300, 0)},
		{ID: 2, SiteName: "[SQUAD] Alpha", Status: models.LogSuccess, Message: "ROAS 3,00, MC 200,00", CreatedAt: time.Unix(200, 0)},
		{ID: 1, SiteName: "Loja A", Status: models.LogSuccess, Message: "Inv: R$ 1,00 | Rec: R$ 1,00 | ROAS: 1,00 | MC: R$ 9.999,00", CreatedAt: time.Unix(100, 0)},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sites", func(w http.ResponseWriter, r *http.Request) {
		c.siteLoads.Add(1)
		c.lastFilter.Store(r.URL.Query().Get("name"))
		var out []models.Site
		for _, s := range sites {
			if strings.Contains(strings.ToLower(s.Name), strings.ToLower(r.URL.Query().Get("name"))) {
				out = append(out, s)
			}
		}
		pkg.JSON(w, http.StatusOK, models.SiteList{Sites: out, Total: len(out)})
	})
	mux.HandleFunc("GET /squads", func(w http.ResponseWriter, _ *http.Request) {
		pkg.JSON(w, http.StatusOK, models.SquadList{Squads: []models.Squad{{ID: 1, Name: "Alpha"}, {ID: 2, Name: "Beta"}}, Total: 2})
	})
	mux.HandleFunc("GET /dashboard/logs", func(w http.ResponseWriter, _ *http.Request) {
		c.logLoads.Add(1)
		pkg.JSON(w, http.StatusOK, models.LogList{Logs: logs})
	})
	mux.HandleFunc("GET /dashboard/stats", func(w http.ResponseWriter, _ *http.Request) {
		pkg.JSON(w, http.StatusOK, models.DashboardStats{TotalSites: 3, ActiveSites: 2})
	})
	mux.HandleFunc("PUT /sites/{id}", func(w http.ResponseWriter, r *http.Request) {
		if c.failWrites.Load() {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "nope")
			return
		}
		var req models.UpdateSiteRequest
		_ = decodeJSONBody(r, &req)
		if req.Status == nil || *req.Status != models.SiteActive || req.McIdx == nil || *req.McIdx != 4 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "unexpected body")
			return
		}
		c.updates.Add(1)
		pkg.JSON(w, http.StatusOK, models.Site{ID: 2})
	})
	return mux
}

func TestDashboardView(t *testing.T) {
	c := &catalog{}
	h := newHarness(t, c.mux(), "/dashboard")
	v := NewDashboardView(NewSitesService(h.api), NewDashboardService(h.api), "Sem Squad")

	v.Load(context.Background())

	s := v.Summary()
	assert.Equal(t, 3, s.TotalSites)
	assert.Equal(t, 2, s.ActiveSites)
	assert.Equal(t, 3, s.Squads)
	assert.Equal(t, 4, s.RecentActivity)

	// The newest row per site wins, so the old 9.999 margin of Loja A is ignored.
	var top []string
	for _, m := range s.Top {
		top = append(top, m.Site)
	}
	assert.Empty(t, cmp.Diff([]string{"Loja A", "Loja B"}, top))
	require.True(t, s.HasTotal)
	require.NotNil(t, v.Stats())
	assert.Equal(t, 3, v.Stats().TotalSites)

	ids := func() []int64 {
		var out []int64
		for _, l := range v.Logs() {
			out = append(out, l.ID)
		}
		return out
	}
	assert.Empty(t, cmp.Diff([]int64{4, 3, 2, 1}, ids()))

	v.SortBy(dashboard.ColumnMC)
	col, desc := v.Sort()
	assert.Equal(t, dashboard.ColumnMC, col)
	assert.False(t, desc)
	asc := ids()
	v.SortBy(dashboard.ColumnMC)
	desc2 := ids()
	for i := range asc {
		assert.Equal(t, asc[i], desc2[len(desc2)-1-i])
	}

	assert.Equal(t, "Sem Squad", v.SquadOf(models.ProcessingLog{SiteName: "Loja C"}))
	assert.Equal(t, "Beta", v.SquadOf(models.ProcessingLog{SiteName: "Loja B"}))
}

func TestMountReloadsOnRefresh(t *testing.T) {
	c := &catalog{}
	h := newHarness(t, c.mux(), "/dashboard")
	v := NewDashboardView(NewSitesService(h.api), NewDashboardService(h.api), "Sem Squad")
	r := NewRefresher(20 * time.Millisecond)
	defer r.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := v.Mount(ctx, r)
	require.Eventually(t, func() bool { return c.logLoads.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	r.Refresh()
	require.Eventually(t, func() bool {
		return c.logLoads.Load() == 2 && c.siteLoads.Load() == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("view did not unmount")
	}
}

func TestSitesViewDebouncesFilter(t *testing.T) {
	c := &catalog{}
	h := newHarness(t, c.mux(), "/sites")
	v := NewSitesView(NewSitesService(h.api), NewSquadsService(h.api), 30*time.Millisecond)
	ctx := context.Background()

	v.Load(ctx)
	require.Len(t, v.Items(), 3)
	assert.Len(t, v.Squads(), 2)

	for _, typed := range []string{"l", "lo", "loja b"} {
		v.SetFilter(ctx, typed, "")
	}
	require.Eventually(t, func() bool { return len(v.Items()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), c.siteLoads.Load())
	assert.Equal(t, "loja b", c.lastFilter.Load())
	assert.Equal(t, models.SiteFilter{Name: "loja b"}, v.Filter())
	assert.False(t, v.Loading())
}

func TestSitesViewToggleStatus(t *testing.T) {
	c := &catalog{}
	h := newHarness(t, c.mux(), "/sites")
	v := NewSitesView(NewSitesService(h.api), NewSquadsService(h.api), 0)
	ctx := context.Background()
	v.Load(ctx)

	site := v.Items()[1]
	require.Equal(t, models.SiteInactive, site.Status)
	require.True(t, v.ToggleStatus(ctx, site))
	assert.Equal(t, int32(1), c.updates.Load())
	assert.NoError(t, v.Error())

	c.failWrites.Store(true)
	before := v.Items()
	assert.False(t, v.ToggleStatus(ctx, site))
	assert.ErrorIs(t, v.Error(), ErrUpdateFailed)
	assert.Equal(t, before, v.Items())
}

func TestRefresher(t *testing.T) {
	r := NewRefresher(30 * time.Millisecond)
	defer r.Stop()

	keys, cancel := r.Subscribe()
	assert.Equal(t, uint64(0), r.RefreshKey())
	assert.False(t, r.IsRefreshing())

	r.Refresh()
	r.Refresh()
	assert.Equal(t, uint64(2), r.RefreshKey())
	assert.True(t, r.IsRefreshing())
	// A subscriber that fell behind only sees the latest key.
	assert.Equal(t, uint64(2), <-keys)

	require.Eventually(t, func() bool { return !r.IsRefreshing() }, time.Second, 5*time.Millisecond)

	cancel()
	cancel()
	_, open := <-keys
	assert.False(t, open)
	r.Refresh()
	assert.Equal(t, uint64(3), r.RefreshKey())
}

func TestRefresherIgnoresExpiredWindow(t *testing.T) {
	r := NewRefresher(time.Hour)
	defer r.Stop()

	first := r.Refresh()
	second := r.Refresh()

	// The first window's timer fired just as the second refresh landed.
	r.expire(first)
	assert.True(t, r.IsRefreshing())

	r.expire(second)
	assert.False(t, r.IsRefreshing())
}
