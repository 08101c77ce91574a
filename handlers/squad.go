package handlers

import (
	"net/http"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/services"
)

// SquadHandler serves /api/squads. Squads are addressed by name.
type SquadHandler struct {
	squadService services.SquadService
}

// NewSquadHandler wires the handler.
func NewSquadHandler(squadService services.SquadService) *SquadHandler {
	return &SquadHandler{squadService: squadService}
}

// List godoc
// GET /api/squads
func (h *SquadHandler) List(w http.ResponseWriter, r *http.Request) {
	squads, err := h.squadService.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.SquadList{Squads: squads, Total: len(squads)})
}

// Create godoc
// POST /api/squads
// Body: { "name": "Alpha", "webhook_url": "https://hooks.slack.com/..." }
func (h *SquadHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSquadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	squad, err := h.squadService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusCreated, squad, i18n.ForRequest(r).T("squads.created"))
}

// Update godoc
// PUT /api/squads/{name}
// Body: { "new_name": "Beta", "webhook_url": "..." }
// Leaving webhook_url out keeps the stored one.
func (h *SquadHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateSquadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	squad, err := h.squadService.Update(r.Context(), r.PathValue("name"), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, squad, i18n.ForRequest(r).T("squads.updated"))
}

// Delete godoc
// DELETE /api/squads/{name}
func (h *SquadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.squadService.Delete(r.Context(), r.PathValue("name")); err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, nil, i18n.ForRequest(r).T("squads.deleted"))
}
