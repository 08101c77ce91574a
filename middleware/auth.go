// Package middleware holds the http.Handler wrappers the router chains in
// front of the handlers:
//
//	RequestLogger → CORS → AuthMiddleware.Require → AdminMiddleware.Require → handler
//
// A middleware that rejects a request writes the envelope itself and does
// not call next.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/cargaslack/carga/handlers"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/services"
)

// AuthMiddleware requires a valid bearer token.
type AuthMiddleware struct {
	authService services.AuthService
}

// NewAuthMiddleware wires the middleware.
func NewAuthMiddleware(authService services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// Require reads "Authorization: Bearer <token>", loads the user and stores
// it under handlers.UserContextKey. A missing header is MISSING_TOKEN; a
// bad, expired or orphaned token is INVALID_TOKEN. Both are 401 so the
// client clears its session.
func (m *AuthMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc := i18n.ForRequest(r)

		authHeader := r.Header.Get("Authorization")
		tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || tokenString == "" {
			pkg.ErrorWithCode(w, http.StatusUnauthorized, loc.T("auth.missingToken"), pkg.CodeMissingToken)
			return
		}

		user, err := m.authService.Authenticate(r.Context(), tokenString)
		if err != nil {
			if errors.Is(err, pkg.ErrUnauthorized) {
				pkg.ErrorWithCode(w, http.StatusUnauthorized, loc.T("auth.invalidToken"), pkg.CodeInvalidToken)
				return
			}
			pkg.Error(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), handlers.UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
