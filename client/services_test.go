package client

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
)

func TestLoginPersistsCredentials(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		_ = decodeJSONBody(r, &req)
		if req.Password != "secret1" {
			pkg.ErrorWithCode(w, http.StatusUnauthorized, "Credenciais inválidas", pkg.CodeInvalidCredentials)
			return
		}
		pkg.JSON(w, http.StatusOK, models.LoginResponse{
			Token: "jwt-1",
			User:  models.User{ID: 3, Username: req.Username, Role: models.RoleViewer, MustChangePassword: true},
		})
	})
	mux.HandleFunc("POST /auth/change-password", requireBearer("jwt-1", func(w http.ResponseWriter, _ *http.Request) {
		pkg.JSONMessage(w, http.StatusOK, nil, "Senha alterada")
	}))
	h := newHarness(t, mux, LoginRoute)
	auth := NewAuthService(h.api, h.store, h.nav)
	ctx := context.Background()

	assert.Nil(t, auth.Login(ctx, models.LoginRequest{Username: "ana", Password: "wrong"}))
	assert.False(t, auth.IsAuthenticated())

	result := auth.Login(ctx, models.LoginRequest{Username: "ana", Password: "secret1"})
	require.NotNil(t, result)
	assert.Equal(t, "jwt-1", result.Token)
	raw, _ := h.store.Get(TokenKey)
	assert.Equal(t, `"jwt-1"`, raw)
	require.NotNil(t, auth.StoredUser())
	assert.True(t, auth.StoredUser().MustChangePassword)

	require.True(t, auth.ChangePassword(ctx, "newpass"))
	assert.False(t, auth.StoredUser().MustChangePassword)

	auth.Logout()
	assert.False(t, auth.IsAuthenticated())
	assert.Nil(t, auth.StoredUser())
	assert.Equal(t, LoginRoute, h.nav.CurrentRoute())
}

func TestServicesReturnSentinelsOnFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pkg.ErrorWithMessage(w, http.StatusInternalServerError, "internal server error")
	})
	h := newHarness(t, mux, "/")
	ctx := context.Background()

	sites := NewSitesService(h.api)
	squads := NewSquadsService(h.api)
	users := NewUsersService(h.api)
	dash := NewDashboardService(h.api)
	auth := NewAuthService(h.api, h.store, h.nav)

	assert.Equal(t, []models.Site{}, sites.GetAll(ctx, models.SiteFilter{}))
	assert.Nil(t, sites.GetByID(ctx, 1))
	assert.Nil(t, sites.GetSheetHeaders(ctx, "https://docs.google.com/x"))
	assert.Nil(t, sites.GetSheetHeadersByName(ctx, "https://docs.google.com/x", "Junho"))
	assert.Nil(t, sites.TestMapping(ctx, "loja"))
	assert.Nil(t, sites.Create(ctx, &models.CreateSiteRequest{Name: "loja"}))
	assert.Nil(t, sites.Update(ctx, 1, &models.UpdateSiteRequest{}))
	assert.False(t, sites.Delete(ctx, 1))

	assert.Equal(t, []models.Squad{}, squads.GetAll(ctx))
	assert.Nil(t, squads.Create(ctx, &models.CreateSquadRequest{Name: "Alpha"}))
	assert.Nil(t, squads.Update(ctx, "Alpha", &models.UpdateSquadRequest{NewName: "Beta"}))
	assert.False(t, squads.Delete(ctx, "Alpha"))

	assert.Equal(t, []models.User{}, users.GetAll(ctx))
	assert.Nil(t, users.GetByID(ctx, 1))
	assert.Nil(t, users.Create(ctx, &models.CreateUserRequest{Email: "a@b.c"}))
	assert.Nil(t, users.Update(ctx, 1, &models.UpdateUserRequest{}))
	assert.False(t, users.Delete(ctx, 1))

	assert.Nil(t, dash.GetStats(ctx))
	assert.Equal(t, []models.ProcessingLog{}, dash.GetLogs(ctx, 0))
	assert.False(t, dash.TriggerManualProcessing(ctx))

	assert.False(t, auth.VerifyToken(ctx))
	assert.Nil(t, auth.Me(ctx))
	assert.False(t, auth.ChangePassword(ctx, "whatever"))
}

func TestRequestShapes(t *testing.T) {
	seen := newRecorder()
	var manualCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /squads/{name}", func(w http.ResponseWriter, r *http.Request) {
		seen.set("deletedSquad", r.PathValue("name"))
		pkg.JSONMessage(w, http.StatusOK, nil, "ok")
	})
	mux.HandleFunc("PUT /squads/{name}", func(w http.ResponseWriter, r *http.Request) {
		seen.set("renamedSquad", r.PathValue("name"))
		var req models.UpdateSquadRequest
		_ = decodeJSONBody(r, &req)
		pkg.JSON(w, http.StatusOK, models.Squad{ID: 1, Name: req.NewName})
	})
	mux.HandleFunc("GET /dashboard/logs", func(w http.ResponseWriter, r *http.Request) {
		seen.set("logLimit", r.URL.Query().Get("limit"))
		pkg.JSON(w, http.StatusOK, models.LogList{})
	})
	mux.HandleFunc("GET /sites", func(w http.ResponseWriter, r *http.Request) {
		seen.set("siteQuery", r.URL.RawQuery)
		pkg.JSON(w, http.StatusOK, models.SiteList{Sites: []models.Site{{ID: 1, Name: "Loja A"}}, Total: 1})
	})
	mux.HandleFunc("POST /sheets/headers/{sheet_name}", func(w http.ResponseWriter, r *http.Request) {
		seen.set("headerTab", r.PathValue("sheet_name"))
		pkg.JSON(w, http.StatusOK, models.SheetHeaders{Headers: []models.SheetHeader{{Index: 2, Name: "Receita"}}})
	})
	mux.HandleFunc("POST /process/manual", func(w http.ResponseWriter, _ *http.Request) {
		manualCalls.Add(1)
		pkg.JSON(w, http.StatusAccepted, models.ProcessRun{Message: "Processamento iniciado", Running: true})
	})
	mux.HandleFunc("POST /squads", func(w http.ResponseWriter, _ *http.Request) {
		pkg.JSONMessage(w, http.StatusCreated, nil, "Squad criado")
	})
	h := newHarness(t, mux, "/")
	ctx := context.Background()

	squads := NewSquadsService(h.api)
	require.True(t, squads.Delete(ctx, "Squad A/B"))
	assert.Equal(t, "Squad A/B", seen.get("deletedSquad"))

	renamed := squads.Update(ctx, "Crescimento & Mídia", &models.UpdateSquadRequest{NewName: "Growth"})
	require.NotNil(t, renamed)
	assert.Equal(t, "Growth", renamed.Name)
	assert.Equal(t, "Crescimento & Mídia", seen.get("renamedSquad"))

	// Success without a body still yields a value.
	assert.NotNil(t, squads.Create(ctx, &models.CreateSquadRequest{Name: "Gamma"}))

	dash := NewDashboardService(h.api)
	dash.GetLogs(ctx, 0)
	assert.Equal(t, "50", seen.get("logLimit"))
	dash.GetLogs(ctx, 10)
	assert.Equal(t, "10", seen.get("logLimit"))
	assert.True(t, dash.TriggerManualProcessing(ctx))
	assert.Equal(t, int32(1), manualCalls.Load())

	sites := NewSitesService(h.api)
	got := sites.GetAll(ctx, models.SiteFilter{Name: "loja", Squad: "Alpha"})
	require.Len(t, got, 1)
	assert.Equal(t, "name=loja&squad=Alpha", seen.get("siteQuery"))
	sites.GetAll(ctx, models.SiteFilter{})
	assert.Empty(t, seen.get("siteQuery"))

	headers := sites.GetSheetHeadersByName(ctx, "https://docs.google.com/x", "Junho 2024")
	require.NotNil(t, headers)
	assert.Equal(t, "Junho 2024", seen.get("headerTab"))
	idx, ok := headers.IndexOf("Receita")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
}
