package handlers

import (
	"net/http"

	"github.com/cargaslack/carga/models"
	"github.com/cargaslack/carga/pkg"
	"github.com/cargaslack/carga/pkg/i18n"
	"github.com/cargaslack/carga/services"
)

// UserHandler serves /api/users. Every route sits behind the admin gate.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler wires the handler.
func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List godoc
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, models.UserList{Users: users, Total: len(users)})
}

// Get godoc
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, user)
}

// Create godoc
// POST /api/users
// Body: { "email": "...", "username": "...", "role": "viewer" }
//
// The generated password is in the response and nowhere else.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	created, err := h.userService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusCreated, created, i18n.ForRequest(r).T("users.created"))
}

// Update godoc
// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.userService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, user, i18n.ForRequest(r).T("users.updated"))
}

// Delete godoc
// DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	actor, _ := CurrentUser(r)
	var actorID int64
	if actor != nil {
		actorID = actor.ID
	}

	if err := h.userService.Delete(r.Context(), actorID, id); err != nil {
		respondError(w, r, err)
		return
	}

	pkg.JSONMessage(w, http.StatusOK, nil, i18n.ForRequest(r).T("users.deleted"))
}
