package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/foxzi/journey/internal/apperr"
)

// ErrorResponse is the error body of every failed request
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse acknowledges a delete
type MessageResponse struct {
	Message string `json:"message"`
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict, apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"detail": ...}. Errors without a kind are
// logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	detail := apperr.Message(err, "Internal server error")

	switch kind {
	case apperr.KindInternal, apperr.KindConfiguration, apperr.KindUpstream:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"kind", kind.String(),
			"error", err,
		)
	}

	sendJSON(w, status, ErrorResponse{Detail: detail})
}

// decodeJSON reads the request body into v
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperr.Invalid("Request body too large")
		}
		return apperr.Invalid("Invalid request body")
	}
	return nil
}
