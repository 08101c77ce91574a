package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/pkg/ratelimit"
	"github.com/cargaslack/carga/services"
)

// ProcessHandler serves POST /api/process/manual.
type ProcessHandler struct {
	processingService services.ProcessingService
	cooldown          *ratelimit.CooldownLimiter
}

// NewProcessHandler wires the handler. A nil cooldown disables the
// per-user limit.
func NewProcessHandler(processingService services.ProcessingService, cooldown *ratelimit.CooldownLimiter) *ProcessHandler {
	return &ProcessHandler{processingService: processingService, cooldown: cooldown}
}

// Manual godoc
// POST /api/process/manual
//
// Returns as soon as the run is scheduled. When a run is already going
// the response names that run and nothing new starts.
func (h *ProcessHandler) Manual(w http.ResponseWriter, r *http.Request) {
	loc := i18n.ForRequest(r)

	key := ratelimit.ExtractIP(r)
	if user, ok := CurrentUser(r); ok {
		key = "user:" + strconv.FormatInt(user.ID, 10)
	}

	if h.cooldown != nil && !h.cooldown.Allow(key) {
		seconds := h.cooldown.RemainingSeconds(key)
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			loc.TWithParams("process.cooldown", map[string]string{"seconds": strconv.Itoa(seconds)}))
		return
	}

	runID, started, err := h.processingService.RunAsync(services.TriggerManual)
	if err != nil {
		if h.cooldown != nil {
			h.cooldown.Forget(key)
		}
		if errors.Is(err, services.ErrProcessingStopped) {
			pkg.ErrorWithMessage(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		respondError(w, r, err)
		return
	}

	if !started {
		// Joining an existing run does not spend the user's cooldown.
		if h.cooldown != nil {
			h.cooldown.Forget(key)
		}
		pkg.JSON(w, http.StatusAccepted, models.ProcessRun{
			Message: loc.T("process.alreadyRunning"),
			RunID:   runID,
			Running: true,
		})
		return
	}

	pkg.JSON(w, http.StatusAccepted, models.ProcessRun{
		Message: loc.T("process.started"),
		RunID:   runID,
		Running: true,
	})
}
