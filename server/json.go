package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/rs/zerolog/log"
)

const (
	msgNotAuthenticated = "Authentication credentials were not provided."
	msgTokenNotValid    = "Given token not valid for any token type"
	msgNoPermission     = "You do not have permission to perform this action."
	msgRequired         = "This field is required."
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("[writeJSON] encode response")
	}
}

// writeError writes the {"error": msg} shape used by the auth and upload views.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDetail writes the {"detail": msg} shape used by the framework's own errors.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeFieldErrors(w http.ResponseWriter, fe users.FieldErrors) {
	writeJSON(w, http.StatusBadRequest, fe)
}

// decodeJSON reads the request body into v; a malformed body gets a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "JSON parse error - "+err.Error())
		return false
	}
	return true
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":       "Not Found",
		"message":     "The requested endpoint " + r.URL.Path + " was not found.",
		"status_code": http.StatusNotFound,
	})
}
