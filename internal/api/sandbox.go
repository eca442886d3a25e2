package api

import (
	"net/http"

	"github.com/foxzi/journey/internal/mailer"
)

// SandboxListResponse lists captured messages
type SandboxListResponse struct {
	Messages []*mailer.CapturedMessage `json:"messages"`
	Count    int                       `json:"count"`
}

// handleSandboxList handles GET /sandbox/messages?to=&limit=&offset=
func (s *Server) handleSandboxList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	messages, err := s.deps.Sandbox.List(r.Context(), r.URL.Query().Get("to"), limit, offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, SandboxListResponse{Messages: messages, Count: len(messages)})
}

// handleSandboxClear handles DELETE /sandbox/messages
func (s *Server) handleSandboxClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Sandbox.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("sandbox cleared", "deleted", n)
	sendJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
