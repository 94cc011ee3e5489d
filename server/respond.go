package server

import (
	"encoding/json"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/clientportal/portal-auth/accounts"
	"github.com/clientportal/portal-auth/auth"
	"github.com/clientportal/portal-auth/claims"
	"github.com/clientportal/portal-auth/serviceclients"
	"github.com/clientportal/portal-auth/tempsession"
	"github.com/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError translates domain sentinels into the HTTP taxonomy.
// Token failures deliberately share one message whatever check failed;
// anything unrecognized is logged with detail and reported generically.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validation.Errors
	switch {
	case errors.As(err, &validationErrors):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Validation failed",
			"details": validationErrors,
		})
	case errors.Is(err, claims.ErrInvalidClaim):
		writeError(w, http.StatusBadRequest, "Invalid or expired claim token")
	case errors.Is(err, claims.ErrEmailExists):
		writeError(w, http.StatusConflict, "A user with this email already exists")
	case errors.Is(err, tempsession.ErrAdminNotAllowed):
		writeError(w, http.StatusForbidden, "Admin users must claim their account first")
	case errors.Is(err, tempsession.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "Invalid or expired session")
	case errors.Is(err, auth.InvalidCredentialsErr):
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.InvalidGrantErr):
		writeError(w, http.StatusUnauthorized, "Invalid or expired login grant")
	case errors.Is(err, accounts.ErrNotFound), errors.Is(err, serviceclients.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, accounts.ErrDuplicate):
		writeError(w, http.StatusConflict, "A user with this email already exists")
	default:
		s.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("unexpected handler error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
