package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/journey/internal/template"
)

// TemplateCreateRequest is the request for creating a template
type TemplateCreateRequest struct {
	Subject             string   `json:"subject"`
	Body                string   `json:"body"`
	SubjectPlaceholders []string `json:"subject_placeholders"`
	BodyPlaceholders    []string `json:"body_placeholders"`
}

// TemplatePreviewRequest maps placeholder tokens to their values
type TemplatePreviewRequest struct {
	Substitutions template.Substitutions `json:"substitutions"`
}

func (s *Server) handleTemplateList(w http.ResponseWriter, r *http.Request) {
	templates, err := s.deps.Templates.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, templates)
}

func (s *Server) handleTemplateCreate(w http.ResponseWriter, r *http.Request) {
	var req TemplateCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tmpl := &template.Template{
		Subject:             req.Subject,
		Body:                req.Body,
		SubjectPlaceholders: req.SubjectPlaceholders,
		BodyPlaceholders:    req.BodyPlaceholders,
	}
	if err := s.deps.Templates.Create(r.Context(), tmpl); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("email template created", "id", tmpl.ID)
	sendJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleTemplateGet(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.deps.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, tmpl)
}

// handleTemplateUpdate changes only the fields present in the body
func (s *Server) handleTemplateUpdate(w http.ResponseWriter, r *http.Request) {
	var upd template.Update
	if err := decodeJSON(r, &upd); err != nil {
		s.writeError(w, r, err)
		return
	}

	tmpl, err := s.deps.Templates.Update(r.Context(), chi.URLParam(r, "id"), &upd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleTemplateDelete(w http.ResponseWriter, r *http.Request) {
	tmpl, err := s.deps.Templates.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("email template deleted", "id", tmpl.ID)
	sendJSON(w, http.StatusOK, tmpl)
}

func (s *Server) handleTemplatePreview(w http.ResponseWriter, r *http.Request) {
	var req TemplatePreviewRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tmpl, err := s.deps.Templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	sendJSON(w, http.StatusOK, template.RenderTemplate(tmpl, req.Substitutions))
}
