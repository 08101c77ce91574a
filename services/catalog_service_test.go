package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/crypto"
	"github.com/cargaslack/carga/pkg/sheets"
)

const sheetURL = "https://docs.google.com/spreadsheets/d/abc/edit"

func reportWorkbook() *sheets.Workbook {
	return &sheets.Workbook{Tabs: []sheets.Tab{
		{ID: 0, Name: "Resumo", Rows: [][]string{
			{"Relatório mensal"},
			{"Data", "Investimento", "", "Receita", "ROAS", "MC"},
			{"01/01", "R$ 100,00", "", "R$ 200,00", "2,00", "R$ 100,00"},
			{"02/01", "R$ 50,00", "", "R$ 150,00", "3,00", "R$ 100,00"},
		}},
		{ID: 7, Name: "Antigo", Rows: [][]string{
			{"Campanha", "Gasto"},
			{"x", "1"},
		}},
	}}
}

func newSiteRequest(name, squad string, mc int) *models.CreateSiteRequest {
	return &models.CreateSiteRequest{
		Name:            name,
		SheetURL:        sheetURL,
		SquadName:       squad,
		InvestimentoIdx: intp(1),
		ReceitaIdx:      intp(3),
		RoasIdx:         intp(4),
		McIdx:           intp(mc),
	}
}

func TestSquadServiceSealsWebhooks(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	cipher, err := crypto.NewCipher("a secret long enough")
	require.NoError(t, err)
	squads := NewSquadService(env.squads, cipher, nop)

	hook := "https://hooks.slack.com/services/T/B/X"
	created, err := squads.Create(ctx, &models.CreateSquadRequest{Name: " Alpha ", WebhookURL: hook})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", created.Name)
	assert.Equal(t, hook, created.WebhookURL)

	stored, err := env.squads.GetByName(ctx, "Alpha")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.WebhookURL, crypto.SealedPrefix))

	list, err := squads.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, hook, list[0].WebhookURL)

	hooks, err := squads.Webhooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Alpha": hook}, hooks)
}

func TestSquadServiceRules(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	squads := NewSquadService(env.squads, nil, nop)
	sites := NewSiteService(env.db.Conn, env.sites, &fakeReader{}, nop)

	_, err := squads.Create(ctx, &models.CreateSquadRequest{Name: "Alpha"})
	require.NoError(t, err)
	_, err = squads.Create(ctx, &models.CreateSquadRequest{Name: "Beta"})
	require.NoError(t, err)

	_, err = squads.Create(ctx, &models.CreateSquadRequest{Name: "Alpha"})
	assert.ErrorIs(t, err, ErrSquadExists)
	var apiErr *pkg.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "Já existe um squad com este nome", apiErr.Message)

	_, err = squads.Update(ctx, "Beta", &models.UpdateSquadRequest{NewName: "Alpha"})
	assert.ErrorIs(t, err, ErrSquadExists)

	renamed, err := squads.Update(ctx, "Beta", &models.UpdateSquadRequest{NewName: "Gama", WebhookURL: strp("https://example.com/hook")})
	require.NoError(t, err)
	assert.Equal(t, "Gama", renamed.Name)
	assert.Equal(t, "https://example.com/hook", renamed.WebhookURL)

	_, err = squads.Update(ctx, "Beta", &models.UpdateSquadRequest{NewName: "Delta"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	_, err = sites.Create(ctx, newSiteRequest("loja-1", "Alpha", 5))
	require.NoError(t, err)
	_, err = sites.Create(ctx, newSiteRequest("loja-2", "Alpha", 5))
	require.NoError(t, err)

	err = squads.Delete(ctx, "Alpha")
	var inUse *SquadInUseError
	require.True(t, errors.As(err, &inUse))
	assert.Equal(t, 2, inUse.Sites)
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Equal(t, "Não é possível excluir. Existem 2 site(s) associado(s).", err.Error())

	require.NoError(t, squads.Delete(ctx, "Gama"))
	assert.ErrorIs(t, squads.Delete(ctx, "Gama"), pkg.ErrNotFound)
}

func TestSiteServiceCreatesSquadOnTheFly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sites := NewSiteService(env.db.Conn, env.sites, &fakeReader{}, nop)

	site, err := sites.Create(ctx, newSiteRequest("loja", "Novo", 5))
	require.NoError(t, err)
	assert.Equal(t, "Novo", site.SquadName)
	assert.Equal(t, models.SiteActive, site.Status)
	assert.False(t, site.HasWebhook)

	squad, err := env.squads.GetByName(ctx, "Novo")
	require.NoError(t, err)
	assert.Equal(t, []string{"loja"}, squad.Sites)

	_, err = sites.Create(ctx, newSiteRequest("loja", "", 5))
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = sites.Create(ctx, &models.CreateSiteRequest{Name: "x"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	// A failed site insert must not leave its new squad behind.
	_, err = sites.Create(ctx, newSiteRequest("loja", "Fantasma", 5))
	require.Error(t, err)
	_, err = env.squads.GetByName(ctx, "Fantasma")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestSiteServiceUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sites := NewSiteService(env.db.Conn, env.sites, &fakeReader{}, nop)

	site, err := sites.Create(ctx, newSiteRequest("loja", "Alpha", 5))
	require.NoError(t, err)

	inactive := models.SiteInactive
	updated, err := sites.Update(ctx, site.ID, &models.UpdateSiteRequest{
		Status:    &inactive,
		SquadName: strp("Beta"),
		McIdx:     intp(2),
	})
	require.NoError(t, err)
	assert.Equal(t, models.SiteInactive, updated.Status)
	assert.Equal(t, "Beta", updated.SquadName)
	assert.Equal(t, 2, updated.McIdx)
	assert.Equal(t, 1, updated.InvestimentoIdx)

	detached, err := sites.Update(ctx, site.ID, &models.UpdateSiteRequest{SquadName: strp("")})
	require.NoError(t, err)
	assert.Empty(t, detached.SquadName)

	_, err = sites.Update(ctx, 404, &models.UpdateSiteRequest{})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	require.NoError(t, sites.DeleteByName(ctx, "loja"))
	assert.ErrorIs(t, sites.Delete(ctx, site.ID), pkg.ErrNotFound)
}

func TestSiteServiceTestMapping(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	reader := &fakeReader{books: map[string]*sheets.Workbook{sheetURL: reportWorkbook()}}
	sites := NewSiteService(env.db.Conn, env.sites, reader, nop)

	_, err := sites.Create(ctx, newSiteRequest("loja", "", 9))
	require.NoError(t, err)

	got, err := sites.TestMapping(ctx, "loja", nil)
	require.NoError(t, err)
	assert.Equal(t, "loja", got.Site)
	assert.Equal(t, 2, got.TotalRows)
	assert.Equal(t, 4, got.LastRow)
	assert.Equal(t, []models.MappingResult{
		{Metric: "Investimento", ColumnName: "Investimento", Index: 1, Value: "R$ 50,00"},
		{Metric: "Receita", ColumnName: "Receita", Index: 3, Value: "R$ 150,00"},
		{Metric: "ROAS", ColumnName: "ROAS", Index: 4, Value: "3,00"},
		{Metric: "MC", ColumnName: "Coluna 9", Index: 9, Value: NotAvailable},
	}, got.Results)

	// Out-of-range tab numbers fall back to the first tab.
	fallback, err := sites.TestMapping(ctx, "loja", intp(42))
	require.NoError(t, err)
	assert.Equal(t, got.Results, fallback.Results)

	second, err := sites.TestMapping(ctx, "loja", intp(1))
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalRows)
	assert.Equal(t, "Coluna 3", second.Results[1].ColumnName)

	_, err = sites.TestMapping(ctx, "nope", nil)
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	reader.err = errors.New("connection refused")
	_, err = sites.TestMapping(ctx, "loja", nil)
	var apiErr *pkg.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, CodeSheetFetchFailed, apiErr.Code)
}

func TestSheetServiceHeaders(t *testing.T) {
	ctx := context.Background()
	svc := NewSheetService(&fakeReader{books: map[string]*sheets.Workbook{sheetURL: reportWorkbook()}}, nop)

	h, err := svc.Headers(ctx, sheetURL)
	require.NoError(t, err)
	assert.Equal(t, []models.SheetInfo{{ID: 0, Name: "Resumo"}, {ID: 7, Name: "Antigo"}}, h.Sheets)
	assert.Equal(t, 6, h.TotalColumns)
	assert.Equal(t, []models.SheetHeader{
		{Index: 0, Name: "Data"},
		{Index: 1, Name: "Investimento"},
		{Index: 3, Name: "Receita"},
		{Index: 4, Name: "ROAS"},
		{Index: 5, Name: "MC"},
	}, h.Headers)
	assert.Empty(t, h.SheetName)

	named, err := svc.HeadersForTab(ctx, sheetURL, "Antigo")
	require.NoError(t, err)
	assert.Equal(t, "Antigo", named.SheetName)
	assert.Equal(t, 2, named.TotalColumns)

	_, err = svc.HeadersForTab(ctx, sheetURL, "Inexistente")
	var apiErr *pkg.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, `Aba "Inexistente" não encontrada`, apiErr.Message)

	_, err = svc.Headers(ctx, "  ")
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestDashboardService(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := NewDashboardService(env.sites, env.squads, env.users, env.logs)
	sites := NewSiteService(env.db.Conn, env.sites, &fakeReader{}, nop)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Nil(t, stats.LastUpdate)

	_, err = sites.Create(ctx, newSiteRequest("a", "Alpha", 5))
	require.NoError(t, err)
	inactive := newSiteRequest("b", "", 5)
	inactive.Status = models.SiteInactive
	_, err = sites.Create(ctx, inactive)
	require.NoError(t, err)

	for i := range 3 {
		require.NoError(t, env.logs.Create(ctx, &models.ProcessingLog{
			SiteName: "a", Status: models.LogInfo, Message: strings.Repeat("x", i+1),
		}))
	}

	stats, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSites)
	assert.Equal(t, 1, stats.ActiveSites)
	assert.Equal(t, 1, stats.TotalSquads)
	require.NotNil(t, stats.LastUpdate)

	logs, err := svc.Logs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "xxx", logs[0].Message)

	assert.Equal(t, DefaultLogLimit, ClampLogLimit(0))
	assert.Equal(t, MaxLogLimit, ClampLogLimit(10_000))
	assert.Equal(t, 7, ClampLogLimit(7))
}
