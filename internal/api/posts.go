package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/post"
)

func (s *Server) handlePostCreate(w http.ResponseWriter, r *http.Request) {
	var p post.Post
	if err := decodeJSON(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.deps.Posts.Create(r.Context(), &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, &p)
}

// handlePostList handles GET /posts/?page=&limit=
func (s *Server) handlePostList(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", post.DefaultLimit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.deps.Posts.List(r.Context(), page, limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, result)
}

func (s *Server) handlePostGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Posts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, p)
}

func (s *Server) handlePostUpdate(w http.ResponseWriter, r *http.Request) {
	var p post.Post
	if err := decodeJSON(r, &p); err != nil {
		s.writeError(w, r, err)
		return
	}

	updated, err := s.deps.Posts.Update(r.Context(), chi.URLParam(r, "id"), &p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, updated)
}

func (s *Server) handlePostDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Posts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, MessageResponse{Message: "Post deleted successfully"})
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Invalid(name + " must be an integer")
	}
	return n, nil
}
