package api

import (
	"encoding/json"
	"net/http"

	"github.com/hudsonargollo/isotec-screening/internal/middleware"
	"github.com/hudsonargollo/isotec-screening/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service error codes to HTTP statuses. Unclassified
// errors become 500 without leaking internals to the client.
func writeError(w http.ResponseWriter, err error) {
	if se, ok := services.AsServiceError(err); ok {
		status := http.StatusInternalServerError
		switch se.Code {
		case services.ErrorInvalid:
			status = http.StatusBadRequest
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		case services.ErrorForbidden:
			status = http.StatusForbidden
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorConflict:
			status = http.StatusConflict
		}
		writeJSON(w, status, map[string]any{"error": se.Message, "code": se.Code})
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}

func tenantID(r *http.Request) string {
	tid, _ := middleware.TenantIDFromContext(r.Context())
	return tid
}

func actor(r *http.Request) string {
	email, _ := middleware.UserEmailFromContext(r.Context())
	return email
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return services.NewInvalidError("invalid request body")
	}
	return nil
}
