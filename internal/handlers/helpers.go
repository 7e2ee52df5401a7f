package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/msalmeida123/sistema-clube-sub003/internal/apperrors"
)

// respondJSON writes v as the JSON response body.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// respondError maps the error taxonomy to an HTTP status. Authentication
// failures are logged for security visibility, never silently swallowed.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusUnauthorized {
		log.Printf("🔒 Acesso negado em %s %s: %v", r.Method, r.URL.Path, err)
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
