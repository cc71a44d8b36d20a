package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/SigNoz/ecommerce-checkout-app/internal/middleware"
	"github.com/SigNoz/ecommerce-checkout-app/internal/services"
	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("[API] Failed to encode response: %v", err)
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// writeError maps a service error onto a status code. Unexpected errors are
// logged with the request id and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v (request_id=%s)", r.Method, r.URL.Path, err, middleware.RequestID(r.Context()))
	}
	writeMessage(w, status, message)
}

var badRequest = []error{
	services.ErrInvalidInput,
	services.ErrInvalidQuantity,
	services.ErrCartEmpty,
	services.ErrAddressRequired,
	services.ErrAddressNotFound,
	services.ErrDuplicateAddress,
	services.ErrDuplicateProduct,
	services.ErrCategoryNotFound,
	services.ErrDuplicateCategory,
	services.ErrVariantRequired,
	services.ErrProductUnavailable,
}

func classify(err error) (int, string) {
	for _, target := range badRequest {
		if errors.Is(err, target) {
			return http.StatusBadRequest, err.Error()
		}
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, services.ErrDuplicateUser), errors.Is(err, services.ErrCheckoutInProgress):
		return http.StatusConflict, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// pathID parses a positive integer path variable
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// caller returns the authenticated user; routes that use it are always
// behind Authenticate
func caller(r *http.Request) middleware.User {
	user, _ := middleware.UserFromContext(r.Context())
	return user
}
