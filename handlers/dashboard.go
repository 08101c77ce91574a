package handlers

import (
	"net/http"
	"strconv"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/services"
)

// DashboardHandler serves the dashboard counters and the log feed.
type DashboardHandler struct {
	dashboardService services.DashboardService
}

// NewDashboardHandler wires the handler.
func NewDashboardHandler(dashboardService services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Stats godoc
// GET /api/dashboard/stats
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, stats)
}

// Logs godoc
// GET /api/dashboard/logs?limit=50
// A missing or unparsable limit falls back to the default.
func (h *DashboardHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.dashboardService.Logs(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.LogList{Logs: logs})
}

// Health godoc
// GET /api/health
func Health(w http.ResponseWriter, _ *http.Request) {
	pkg.JSON(w, http.StatusOK, models.Health{Status: "ok", Service: "carga-slack"})
}
