package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/journey/internal/content"
)

// ContentRequest is the body of content create and update
type ContentRequest struct {
	PageName    string `json:"page_name"`
	SectionName string `json:"section_name"`
	Content     string `json:"content"`
}

func (s *Server) handleContentCreate(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	b := &content.Block{
		PageName:    req.PageName,
		SectionName: req.SectionName,
		Content:     req.Content,
	}
	if err := s.deps.Content.Create(r.Context(), b); err != nil {
		s.writeError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, b)
}

func (s *Server) handleContentList(w http.ResponseWriter, r *http.Request) {
	blocks, err := s.deps.Content.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleContentGet(w http.ResponseWriter, r *http.Request) {
	b, err := s.deps.Content.Get(r.Context(), chi.URLParam(r, "page"), chi.URLParam(r, "section"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, b)
}

func (s *Server) handleContentUpdate(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	b, err := s.deps.Content.Update(r.Context(), chi.URLParam(r, "page"), chi.URLParam(r, "section"), content.Update{
		PageName:    req.PageName,
		SectionName: req.SectionName,
		Content:     req.Content,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, b)
}

func (s *Server) handleContentDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Content.Delete(r.Context(), chi.URLParam(r, "page"), chi.URLParam(r, "section")); err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, MessageResponse{Message: "Content deleted successfully"})
}
