package api

import (
	"net/http"
)

// handleAutocomplete handles GET /geolocation/autocomplete?input=
func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	places, err := s.deps.Geo.Autocomplete(r.Context(), r.URL.Query().Get("input"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, places)
}
