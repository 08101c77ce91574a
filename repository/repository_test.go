package repository

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargaslack/carga/database"
	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)

	db, err := database.New(filepath.Join(t.TempDir(), "carga.db"), migrations, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func intPtr(v int64) *int64 { return &v }

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteUserRepo(openTestDB(t).Conn)

	email := "ana@example.com"
	ana := &models.User{Username: "ana", Email: &email, PasswordHash: "h", Role: models.RoleViewer, MustChangePassword: true}
	require.NoError(t, repo.Create(ctx, ana))
	assert.NotZero(t, ana.ID)

	t.Run("duplicate username", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{Username: "ana", PasswordHash: "h", Role: models.RoleViewer})
		assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
	})

	t.Run("login by email or username", func(t *testing.T) {
		byEmail, err := repo.GetByLogin(ctx, email)
		require.NoError(t, err)
		assert.Equal(t, ana.ID, byEmail.ID)

		byName, err := repo.GetByLogin(ctx, "ana")
		require.NoError(t, err)
		assert.True(t, byName.MustChangePassword)
	})

	t.Run("unknown login", func(t *testing.T) {
		_, err := repo.GetByLogin(ctx, "nobody")
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})

	t.Run("password update clears the flag", func(t *testing.T) {
		require.NoError(t, repo.UpdatePassword(ctx, ana.ID, "h2", false))
		got, err := repo.GetByID(ctx, ana.ID)
		require.NoError(t, err)
		assert.Equal(t, "h2", got.PasswordHash)
		assert.False(t, got.MustChangePassword)
	})

	t.Run("delete missing", func(t *testing.T) {
		assert.ErrorIs(t, repo.Delete(ctx, 9999), pkg.ErrNotFound)
	})

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSiteAndSquadRepos(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	squads := NewSQLiteSquadRepo(db.Conn)
	sites := NewSQLiteSiteRepo(db.Conn)

	growth := &models.Squad{Name: "Growth", WebhookURL: "https://hooks.slack.com/x"}
	require.NoError(t, squads.Create(ctx, growth))
	core := &models.Squad{Name: "Core"}
	require.NoError(t, squads.Create(ctx, core))

	for _, s := range []*models.Site{
		{Name: "beta_shop", SheetURL: "u", SquadID: intPtr(growth.ID), Status: models.SiteActive, RoasIdx: 2},
		{Name: "alpha", SheetURL: "u", SquadID: intPtr(growth.ID), Status: models.SiteInactive},
		{Name: "gamma", SheetURL: "u", SquadID: intPtr(core.ID), Status: models.SiteActive},
	} {
		require.NoError(t, sites.Create(ctx, s))
	}

	t.Run("site join fills squad fields", func(t *testing.T) {
		got, err := sites.GetByName(ctx, "beta_shop")
		require.NoError(t, err)
		assert.Equal(t, "Growth", got.SquadName)
		assert.True(t, got.HasWebhook)
		assert.Equal(t, 2, got.RoasIdx)

		gamma, err := sites.GetByName(ctx, "gamma")
		require.NoError(t, err)
		assert.False(t, gamma.HasWebhook)
	})

	t.Run("list filters", func(t *testing.T) {
		all, err := sites.List(ctx, models.SiteFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "alpha", all[0].Name)

		// "_" must be literal, not a single-char wildcard.
		byName, err := sites.List(ctx, models.SiteFilter{Name: "a_s"})
		require.NoError(t, err)
		assert.Empty(t, byName)

		bySquad, err := sites.List(ctx, models.SiteFilter{Squad: "Core"})
		require.NoError(t, err)
		require.Len(t, bySquad, 1)
		assert.Equal(t, "gamma", bySquad[0].Name)

		active, err := sites.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("counts", func(t *testing.T) {
		total, active, err := sites.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Equal(t, 2, active)
	})

	t.Run("squad list aggregates site names", func(t *testing.T) {
		list, err := squads.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Core", list[0].Name)
		assert.Equal(t, []string{"alpha", "beta_shop"}, list[1].Sites)
		assert.Equal(t, 2, list[1].SitesCount)
	})

	t.Run("squad with sites cannot be deleted", func(t *testing.T) {
		n, err := squads.CountSites(ctx, growth.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.ErrorIs(t, squads.Delete(ctx, growth.ID), pkg.ErrConflict)
	})

	t.Run("duplicate squad", func(t *testing.T) {
		err := squads.Create(ctx, &models.Squad{Name: "Growth"})
		assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
	})

	t.Run("delete by name", func(t *testing.T) {
		require.NoError(t, sites.DeleteByName(ctx, "gamma"))
		assert.ErrorIs(t, sites.DeleteByName(ctx, "gamma"), pkg.ErrNotFound)
		require.NoError(t, squads.Delete(ctx, core.ID))

		_, err := squads.GetByName(ctx, "Core")
		assert.True(t, errors.Is(err, pkg.ErrNotFound))
	})
}

func TestSiteRepoRejectsUnknownSquad(t *testing.T) {
	repo := NewSQLiteSiteRepo(openTestDB(t).Conn)
	err := repo.Create(context.Background(), &models.Site{
		Name: "x", SheetURL: "u", SquadID: intPtr(42), Status: models.SiteActive,
	})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
}

func TestLogRepo(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLiteLogRepo(openTestDB(t).Conn)

	last, err := repo.LastCreatedAt(ctx)
	require.NoError(t, err)
	assert.Nil(t, last)

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, &models.ProcessingLog{
			SiteName:  name,
			Status:    models.LogSuccess,
			Message:   "ok",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	logs, err := repo.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "c", logs[0].SiteName)
	assert.Equal(t, "b", logs[1].SiteName)

	last, err = repo.LastCreatedAt(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.True(t, last.Equal(base.Add(2*time.Minute)))
}
