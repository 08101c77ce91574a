package handlers

import (
	"net/http"
	"strconv"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/services"
)

// SiteHandler serves /api/sites. Reads are open to every signed-in user;
// writes go through the admin gate in the router.
type SiteHandler struct {
	siteService services.SiteService
}

// NewSiteHandler wires the handler.
func NewSiteHandler(siteService services.SiteService) *SiteHandler {
	return &SiteHandler{siteService: siteService}
}

// List godoc
// GET /api/sites?name=loja&squad=Alpha
func (h *SiteHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sites, err := h.siteService.List(r.Context(), models.SiteFilter{
		Name:  q.Get("name"),
		Squad: q.Get("squad"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.SiteList{Sites: sites, Total: len(sites)})
}

// Get godoc
// GET /api/sites/{ref}
// ref is a numeric id or, failing that, a site name.
func (h *SiteHandler) Get(w http.ResponseWriter, r *http.Request) {
	var (
		site *models.Site
		err  error
	)
	if id, ok := numericRef(r.PathValue("ref")); ok {
		site, err = h.siteService.Get(r.Context(), id)
	} else {
		site, err = h.siteService.GetByName(r.Context(), r.PathValue("ref"))
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, site)
}

// Create godoc
// POST /api/sites
func (h *SiteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	site, err := h.siteService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusCreated, site, i18n.ForRequest(r).T("sites.created"))
}

// Update godoc
// PUT /api/sites/{ref}
func (h *SiteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "ref")
	if !ok {
		return
	}

	var req models.UpdateSiteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	site, err := h.siteService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, site, i18n.ForRequest(r).T("sites.updated"))
}

// Delete godoc
// DELETE /api/sites/{ref}
func (h *SiteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var err error
	if id, ok := numericRef(r.PathValue("ref")); ok {
		err = h.siteService.Delete(r.Context(), id)
	} else {
		err = h.siteService.DeleteByName(r.Context(), r.PathValue("ref"))
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, nil, i18n.ForRequest(r).T("sites.deleted"))
}

// TestMapping godoc
// GET /api/sites/test/{name}?sheet=1
// sheet is the zero-based tab position; without it the site's own tab is read.
func (h *SiteHandler) TestMapping(w http.ResponseWriter, r *http.Request) {
	var tab *int
	if raw := r.URL.Query().Get("sheet"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			pkg.ErrorWithMessage(w, http.StatusBadRequest, "invalid sheet")
			return
		}
		tab = &n
	}

	result, err := h.siteService.TestMapping(r.Context(), r.PathValue("name"), tab)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, result)
}

func numericRef(ref string) (int64, bool) {
	id, err := strconv.ParseInt(ref, 10, 64)
	return id, err == nil && id > 0
}
