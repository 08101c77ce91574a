// Package handlers holds the thin HTTP layer: decode the request, call one
// service, write the envelope. No business rules live here.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/services"
)

type contextKey string

// UserContextKey is set by the auth middleware to the authenticated
// *models.User (password hash already cleared).
const UserContextKey contextKey = "user"

// CurrentUser returns the user stored by the auth middleware.
func CurrentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	return user, ok && user != nil
}

// decodeJSON writes the 400 itself; callers just return on false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, i18n.ForRequest(r).T("common.invalidBody"))
		return false
	}
	return true
}

// pathID parses a numeric path segment. A malformed id is a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		pkg.ErrorWithMessage(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

// respondError localizes the handful of errors whose message is shown to
// dashboard users verbatim and defers everything else to pkg.Error.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	loc := i18n.ForRequest(r)

	var inUse *services.SquadInUseError
	switch {
	case errors.As(err, &inUse):
		pkg.ErrorWithMessage(w, http.StatusBadRequest,
			loc.TWithParams("squads.hasSites", map[string]string{"count": strconv.Itoa(inUse.Sites)}))
	case errors.Is(err, services.ErrSquadExists):
		pkg.ErrorWithMessage(w, http.StatusBadRequest, loc.T("squads.duplicate"))
	case errors.Is(err, services.ErrInvalidCredentials):
		pkg.ErrorWithCode(w, http.StatusUnauthorized, loc.T("auth.invalidCredentials"), pkg.CodeInvalidCredentials)
	default:
		pkg.Error(w, err)
	}
}
