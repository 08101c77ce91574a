package handlers

import (
	"net/http"
	"strconv"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/pkg/ratelimit"
	"github.com/cargaslack/carga/services"
)

// AuthHandler serves /api/auth.
type AuthHandler struct {
	authService  services.AuthService
	loginLimiter *ratelimit.LoginRateLimiter
}

// NewAuthHandler wires the handler. A nil loginLimiter disables the
// brute-force guard.
func NewAuthHandler(authService services.AuthService, loginLimiter *ratelimit.LoginRateLimiter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginLimiter: loginLimiter,
	}
}

// Login godoc
// POST /api/auth/login
// Body: { "username": "...", "password": "...", "remember": true }
//
// Attempts are counted per client IP; a successful login resets the count.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := ratelimit.ExtractIP(r)
	if h.loginLimiter != nil && !h.loginLimiter.Allow(ip) {
		retryAfter := h.loginLimiter.RetryAfterSeconds(ip)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		pkg.ErrorWithMessage(w, http.StatusTooManyRequests,
			i18n.ForRequest(r).TWithParams("auth.tooManyAttempts", map[string]string{"seconds": strconv.Itoa(retryAfter)}))
		return
	}

	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	if h.loginLimiter != nil {
		h.loginLimiter.Reset(ip)
	}

	pkg.JSON(w, http.StatusOK, resp)
}

// Verify godoc
// GET /api/auth/verify
// Reaching the handler means the middleware accepted the token.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithCode(w, http.StatusUnauthorized, i18n.ForRequest(r).T("auth.invalidToken"), pkg.CodeInvalidToken)
		return
	}

	pkg.JSON(w, http.StatusOK, models.VerifyResponse{Valid: true, User: *user})
}

// Me godoc
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithCode(w, http.StatusUnauthorized, i18n.ForRequest(r).T("auth.invalidToken"), pkg.CodeInvalidToken)
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// ChangePassword godoc
// POST /api/auth/change-password
// Body: { "new_password": "..." }
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := CurrentUser(r)
	if !ok {
		pkg.ErrorWithCode(w, http.StatusUnauthorized, i18n.ForRequest(r).T("auth.invalidToken"), pkg.CodeInvalidToken)
		return
	}

	var req models.ChangePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.authService.ChangePassword(r.Context(), user.ID, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, updated, i18n.ForRequest(r).T("auth.passwordChanged"))
}
