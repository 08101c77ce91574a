package handlers

import (
	"net/http"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/services"
)

// SheetHandler serves /api/sheets, used by the site form to map columns.
type SheetHandler struct {
	sheetService services.SheetService
}

// NewSheetHandler wires the handler.
func NewSheetHandler(sheetService services.SheetService) *SheetHandler {
	return &SheetHandler{sheetService: sheetService}
}

// Headers godoc
// POST /api/sheets/headers
// Body: { "sheet_url": "https://docs.google.com/spreadsheets/d/..." }
func (h *SheetHandler) Headers(w http.ResponseWriter, r *http.Request) {
	var req models.SheetHeadersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	headers, err := h.sheetService.Headers(r.Context(), req.SheetURL)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, headers)
}

// HeadersForTab godoc
// POST /api/sheets/headers/{sheet_name}
func (h *SheetHandler) HeadersForTab(w http.ResponseWriter, r *http.Request) {
	var req models.SheetHeadersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	headers, err := h.sheetService.HeadersForTab(r.Context(), req.SheetURL, r.PathValue("sheet_name"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, headers)
}
