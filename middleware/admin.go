package middleware

import (
	"net/http"

	"github.com/cargaslack/carga/handlers"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
)

// AdminMiddleware lets only admin users through. It runs after
// AuthMiddleware, so the user is already in the context.
//
//	authMw.Require(adminMw.Require(http.HandlerFunc(userHandler.List)))
type AdminMiddleware struct{}

// NewAdminMiddleware wires the middleware.
func NewAdminMiddleware() *AdminMiddleware {
	return &AdminMiddleware{}
}

// Require answers 403 for non-admins.
func (m *AdminMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		loc := i18n.ForRequest(r)

		user, ok := handlers.CurrentUser(r)
		if !ok {
			pkg.ErrorWithCode(w, http.StatusUnauthorized, loc.T("auth.invalidToken"), pkg.CodeInvalidToken)
			return
		}

		if !user.IsAdmin() {
			pkg.ErrorWithMessage(w, http.StatusForbidden, loc.T("auth.forbidden"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
