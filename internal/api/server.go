package api

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/foxzi/journey/internal/broadcast"
	"github.com/foxzi/journey/internal/config"
	"github.com/foxzi/journey/internal/content"
	"github.com/foxzi/journey/internal/geo"
	"github.com/foxzi/journey/internal/mailer"
	"github.com/foxzi/journey/internal/metrics"
	"github.com/foxzi/journey/internal/post"
	"github.com/foxzi/journey/internal/ratelimit"
	"github.com/foxzi/journey/internal/store"
	"github.com/foxzi/journey/internal/subscriber"
	"github.com/foxzi/journey/internal/template"
)

// Deps are the services behind the HTTP API
type Deps struct {
	Store       store.Store
	Content     *content.Service
	Posts       *post.Service
	Templates   *template.Storage
	Subscribers *subscriber.Manager
	Broadcaster *broadcast.Broadcaster
	Geo         *geo.Service
	// Sandbox is set only when the sandbox mail provider is active
	Sandbox *mailer.SandboxSender
}

// Server is the HTTP API server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	deps       Deps
	config     *config.APIConfig
	version    string
	logger     *slog.Logger
	startTime  time.Time
}

// NewServer creates a new API server
func NewServer(deps Deps, cfg *config.APIConfig, version string, logger *slog.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		deps:      deps,
		config:    cfg,
		version:   version,
		logger:    logger,
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(metrics.HTTPMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "api_key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if s.config.MaxBodyBytes > 0 {
		r.Use(s.bodyLimit)
	}

	r.Get("/health", s.handleHealth)

	r.Route("/content", func(r chi.Router) {
		r.Get("/", s.handleContentList)
		r.Get("/{page}/{section}", s.handleContentGet)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/", s.handleContentCreate)
			r.Put("/{page}/{section}", s.handleContentUpdate)
			r.Delete("/{page}/{section}", s.handleContentDelete)
		})
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", s.handlePostList)
		r.Get("/{id}", s.handlePostGet)
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/", s.handlePostCreate)
			r.Put("/{id}", s.handlePostUpdate)
			r.Delete("/{id}", s.handlePostDelete)
		})
	})

	r.Route("/email-templates", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/", s.handleTemplateList)
		r.Post("/", s.handleTemplateCreate)
		r.Get("/{id}", s.handleTemplateGet)
		r.Put("/{id}", s.handleTemplateUpdate)
		r.Delete("/{id}", s.handleTemplateDelete)
		r.Post("/{id}/preview", s.handleTemplatePreview)
	})

	var signupLimit func(http.Handler) http.Handler
	if rl := s.config.SignupRateLimit; rl.Enabled {
		signupLimit = ratelimit.New(rl.RequestsPerSecond, rl.Burst).Middleware("signup")
	}
	for _, list := range subscriber.Lists() {
		r.Route("/"+string(list), func(r chi.Router) {
			s.registerListRoutes(r, list, signupLimit)
		})
	}

	r.Get("/geolocation/autocomplete", s.handleAutocomplete)

	if s.deps.Sandbox != nil {
		r.Route("/sandbox", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/messages", s.handleSandboxList)
			r.Delete("/messages", s.handleSandboxClear)
		})
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server. tlsConfig may be nil.
func (s *Server) ListenAndServe(tlsConfig *tls.Config) error {
	s.httpServer = &http.Server{
		Addr:           s.config.ListenAddr,
		Handler:        s.router,
		TLSConfig:      tlsConfig,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	if tlsConfig != nil {
		s.logger.Info("starting HTTPS API server", "addr", s.config.ListenAddr)
		return s.httpServer.ListenAndServeTLS("", "")
	}
	s.logger.Info("starting HTTP API server", "addr", s.config.ListenAddr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP API server")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// HealthResponse is the response for GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	Storage string `json:"storage"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  "ok",
		Version: s.version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Storage: "ok",
	}
	status := http.StatusOK

	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			s.logger.Error("storage ping failed", "error", err)
			resp.Status = "degraded"
			resp.Storage = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	sendJSON(w, status, resp)
}
