package api

import (
	"net/http"

	"github.com/SigNoz/ecommerce-checkout-app/internal/models"
)

// CreateUserHandler handles POST /api/users
func (a *App) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := a.svc.Users.CreateUser(r.Context(), req.Email, req.Name, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// MeHandler handles GET /api/users/me
func (a *App) MeHandler(w http.ResponseWriter, r *http.Request) {
	user, err := a.svc.Users.GetUser(r.Context(), caller(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
