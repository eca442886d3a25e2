package api

import (
	_ "embed"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/subscriber"
)

//go:embed unsubscribe.html
var unsubscribePage []byte

// BroadcastResponse reports a notification broadcast. EmailsSent counts
// attempted sends.
type BroadcastResponse struct {
	Status     string            `json:"status"`
	EmailsSent int               `json:"emails_sent"`
	Attempted  int               `json:"attempted"`
	Succeeded  int               `json:"succeeded"`
	Failed     int               `json:"failed"`
	Failures   []FailureResponse `json:"failures"`
}

// FailureResponse is one failed recipient
type FailureResponse struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

func (s *Server) registerListRoutes(r chi.Router, list subscriber.List, signupLimit func(http.Handler) http.Handler) {
	signup := http.Handler(s.handleSignup(list))
	if signupLimit != nil {
		signup = signupLimit(signup)
	}
	r.Method(http.MethodPost, "/signup", signup)
	r.Get("/unsubscribe", s.handleUnsubscribe(list))

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/users", s.handleListUsers(list))
		r.Get("/send-notification/{post_id}", s.handleSendNotification(list))
	})
}

// handleSignup answers the newsletter with the stored record and the
// waitlist with 201 true.
func (s *Server) handleSignup(list subscriber.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req subscriber.SignupRequest
		if err := decodeJSON(r, &req); err != nil {
			s.writeError(w, r, err)
			return
		}

		res, err := s.deps.Subscribers.Signup(r.Context(), list, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		if list == subscriber.Waitlist {
			sendJSON(w, http.StatusCreated, true)
			return
		}
		sendJSON(w, http.StatusOK, res.Subscriber)
	}
}

func (s *Server) handleUnsubscribe(list subscriber.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email := r.URL.Query().Get("email")
		if email == "" {
			s.writeError(w, r, apperr.Invalid("email is required"))
			return
		}

		if _, err := s.deps.Subscribers.Unsubscribe(r.Context(), list, email); err != nil {
			s.writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write(unsubscribePage)
	}
}

func (s *Server) handleListUsers(list subscriber.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subs, err := s.deps.Subscribers.ListAll(r.Context(), list)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, subs)
	}
}

func (s *Server) handleSendNotification(list subscriber.List) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		postID := chi.URLParam(r, "post_id")

		res, err := s.deps.Broadcaster.Broadcast(r.Context(), list, postID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		resp := BroadcastResponse{
			Status:     "success",
			EmailsSent: res.Attempted,
			Attempted:  res.Attempted,
			Succeeded:  res.Succeeded,
			Failed:     res.Failed,
			Failures:   []FailureResponse{},
		}
		for _, f := range res.Failures() {
			resp.Failures = append(resp.Failures, FailureResponse{Email: f.Email, Error: f.Err.Error()})
		}
		sendJSON(w, http.StatusOK, resp)
	}
}
