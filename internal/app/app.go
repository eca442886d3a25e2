package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/foxzi/journey/internal/api"
	"github.com/foxzi/journey/internal/config"
	"github.com/foxzi/journey/internal/metrics"
	journeyTLS "github.com/foxzi/journey/internal/tls"
)

// App is the main application
type App struct {
	config        *config.Config
	services      *Services
	apiServer     *api.Server
	metricsServer *metrics.Server
	tls           *journeyTLS.Setup
	acmeServer    *http.Server
	logger        *slog.Logger
}

// New creates a new application
func New(ctx context.Context, cfg *config.Config, version string) (*App, error) {
	logger := NewLogger(cfg.Logging)

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, cfg.Metrics.AllowedIPs, logger.With("component", "metrics"))
	}

	services, err := NewServices(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	tlsSetup, err := journeyTLS.FromConfig(cfg.API.TLS)
	if err != nil {
		services.Close(ctx)
		return nil, err
	}
	if tlsSetup != nil {
		if tlsSetup.ACME != nil {
			logger.Info("ACME (Let's Encrypt) enabled", "domains", cfg.API.TLS.ACME.Domains)
			for _, c := range tlsSetup.ACME.CachedCertificates(ctx) {
				logger.Info("cached certificate", "domain", c.Domain, "days_left", c.DaysLeft)
			}
		} else if info, err := journeyTLS.InspectFile(cfg.API.TLS.CertFile); err == nil {
			logger.Info("TLS enabled with manual certificate", "subject", info.Domain, "days_left", info.DaysLeft)
		}
	}

	apiServer := api.NewServer(api.Deps{
		Store:       services.Store,
		Content:     services.Content,
		Posts:       services.Posts,
		Templates:   services.Templates,
		Subscribers: services.Subscribers,
		Broadcaster: services.Broadcaster,
		Geo:         services.Geo,
		Sandbox:     services.Sandbox,
	}, &cfg.API, version, logger.With("component", "api"))

	return &App{
		config:        cfg,
		services:      services,
		apiServer:     apiServer,
		metricsServer: metricsServer,
		tls:           tlsSetup,
		logger:        logger,
	}, nil
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting journey",
		"api_addr", a.config.API.ListenAddr,
		"storage", a.config.Storage.Driver,
		"mail_provider", a.services.Mailer.Provider(),
		"tls", a.tls != nil,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 3)

	go func() {
		var err error
		if a.tls != nil {
			err = a.apiServer.ListenAndServe(a.tls.Config)
		} else {
			err = a.apiServer.ListenAndServe(nil)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	// HTTP-01 challenges; everything else is redirected to HTTPS
	if a.tls != nil && a.tls.ACME != nil {
		a.acmeServer = &http.Server{
			Addr: a.tls.ACME.HTTPAddr(),
			Handler: a.tls.ACME.HTTPHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				target := "https://" + r.Host + r.URL.Path
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusMovedPermanently)
			})),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			a.logger.Info("starting ACME HTTP challenge server", "addr", a.acmeServer.Addr)
			if err := a.acmeServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Warn("ACME HTTP server error", "error", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-errCh:
		a.logger.Error("server error", "error", runErr)
		cancel()
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return err
	}
	return runErr
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}

	if a.acmeServer != nil {
		if err := a.acmeServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("acme server shutdown error", "error", err)
		}
	}

	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.services.Close(shutdownCtx); err != nil {
		a.logger.Error("storage close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
