package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(i int) *int { return &i }

func TestCreateSiteRequestValidate(t *testing.T) {
	t.Run("missing fields are listed in order", func(t *testing.T) {
		req := CreateSiteRequest{Name: "  ", RoasIdx: intPtr(2)}
		err := req.Validate()
		require.Error(t, err)
		assert.Equal(t, "missing required fields: name, sheet_url, investimento_idx, receita_idx, mc_idx", err.Error())
	})

	t.Run("column zero counts as set", func(t *testing.T) {
		req := CreateSiteRequest{
			Name:            " Loja A ",
			SheetURL:        "https://docs.google.com/spreadsheets/d/abc",
			InvestimentoIdx: intPtr(0),
			ReceitaIdx:      intPtr(1),
			RoasIdx:         intPtr(2),
			McIdx:           intPtr(3),
		}
		require.NoError(t, req.Validate())
		assert.Equal(t, "Loja A", req.Name)
		assert.Equal(t, SiteActive, req.Status)
	})

	t.Run("negative index", func(t *testing.T) {
		req := CreateSiteRequest{
			Name: "a", SheetURL: "u",
			InvestimentoIdx: intPtr(-1), ReceitaIdx: intPtr(1), RoasIdx: intPtr(2), McIdx: intPtr(3),
		}
		assert.Error(t, req.Validate())
	})
}

func TestUpdateSiteRequestApply(t *testing.T) {
	status := SiteInactive
	name := " B "
	req := UpdateSiteRequest{Name: &name, Status: &status, McIdx: intPtr(9)}
	require.NoError(t, req.Validate())

	site := Site{Name: "A", Status: SiteActive, McIdx: 1, RoasIdx: 4}
	req.Apply(&site)

	assert.Equal(t, "B", site.Name)
	assert.Equal(t, SiteInactive, site.Status)
	assert.Equal(t, 9, site.McIdx)
	assert.Equal(t, 4, site.RoasIdx)
}

func TestCreateUserRequestDefaults(t *testing.T) {
	req := CreateUserRequest{Email: " ana@example.com "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "ana@example.com", req.Username)
	assert.Equal(t, RoleViewer, req.Role)

	bad := CreateUserRequest{Email: "ana@example.com", Role: "owner"}
	assert.Error(t, bad.Validate())

	missing := CreateUserRequest{}
	assert.EqualError(t, missing.Validate(), "email is required")
}

func TestChangePasswordMinimumLength(t *testing.T) {
	assert.Error(t, (&ChangePasswordRequest{NewPassword: "12345"}).Validate())
	assert.NoError(t, (&ChangePasswordRequest{NewPassword: "123456"}).Validate())
}

func TestSquadRequests(t *testing.T) {
	create := CreateSquadRequest{Name: " Alpha ", WebhookURL: "ftp://x"}
	assert.Error(t, create.Validate())

	create.WebhookURL = "https://hooks.slack.com/services/T/B/X"
	require.NoError(t, create.Validate())
	assert.Equal(t, "Alpha", create.Name)

	update := UpdateSquadRequest{NewName: ""}
	assert.Error(t, update.Validate())
}

func TestProcessingLogSquadSummary(t *testing.T) {
	log := ProcessingLog{SiteName: SquadSummaryName("Alpha")}
	assert.Equal(t, "[SQUAD] Alpha", log.SiteName)
	assert.True(t, log.IsSquadSummary())
	assert.False(t, (&ProcessingLog{SiteName: "Alpha"}).IsSquadSummary())
}

func TestSheetHeadersIndexOf(t *testing.T) {
	h := SheetHeaders{Headers: []SheetHeader{{Index: 0, Name: "Data"}, {Index: 3, Name: "MC"}}}
	idx, ok := h.IndexOf("MC")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = h.IndexOf("ROAS")
	assert.False(t, ok)
}
