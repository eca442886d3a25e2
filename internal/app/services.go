package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/foxzi/journey/internal/broadcast"
	"github.com/foxzi/journey/internal/cache"
	"github.com/foxzi/journey/internal/config"
	"github.com/foxzi/journey/internal/content"
	"github.com/foxzi/journey/internal/geo"
	"github.com/foxzi/journey/internal/mailer"
	"github.com/foxzi/journey/internal/post"
	"github.com/foxzi/journey/internal/store"
	"github.com/foxzi/journey/internal/subscriber"
	"github.com/foxzi/journey/internal/template"
)

// Services are the domain services built over one store. The CLI uses
// them directly; the server puts the HTTP API in front.
type Services struct {
	Store       store.Store
	Cache       cache.Cache
	Mailer      *mailer.Dispatcher
	Sandbox     *mailer.SandboxSender
	Content     *content.Service
	Posts       *post.Service
	Templates   *template.Storage
	Subscribers *subscriber.Manager
	Broadcaster *broadcast.Broadcaster
	Geo         *geo.Service
}

// NewServices opens storage and builds every service from cfg
func NewServices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	st, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		st.Close(ctx)
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	sender, err := mailer.NewSender(ctx, cfg.Mail, st, logger.With("component", "mailer"))
	if err != nil {
		c.Close()
		st.Close(ctx)
		return nil, fmt.Errorf("failed to create mail sender: %w", err)
	}
	sandbox, _ := sender.(*mailer.SandboxSender)
	dispatcher := mailer.NewDispatcher(sender, cfg.Mail.FromEmail, cfg.Mail.FromName, cfg.Mail.ReplyTo, logger.With("component", "mailer"))

	templates := template.NewStorage(st)
	posts := post.NewService(st)

	subs := subscriber.NewManager(st, templates, dispatcher, subscriber.Options{
		WelcomeTemplates: map[subscriber.List]string{
			subscriber.Newsletter: cfg.Templates.NewsletterWelcome,
			subscriber.Waitlist:   cfg.Templates.WaitlistWelcome,
		},
		PublicAPIURL: cfg.Links.PublicAPIURL,
	}, logger.With("component", "subscriber"))

	bc := broadcast.New(posts, templates, subs, dispatcher, broadcast.Options{
		Lists: map[subscriber.List]broadcast.ListSettings{
			subscriber.Newsletter: {TemplateID: cfg.Templates.NewsletterNotification, PostLink: cfg.Links.NewsletterPost},
			subscriber.Waitlist:   {TemplateID: cfg.Templates.WaitlistNotification, PostLink: cfg.Links.WaitlistPost},
		},
		PublicAPIURL: cfg.Links.PublicAPIURL,
		Concurrency:  cfg.Broadcast.Concurrency,
	}, logger.With("component", "broadcast"))

	var provider geo.Provider
	if gp, err := geo.NewGoogleProvider(cfg.Geo, ""); err == nil {
		provider = gp
	} else {
		logger.Warn("geolocation disabled", "reason", err)
	}

	logger.Info("services ready",
		"storage", cfg.Storage.Driver,
		"mail_provider", dispatcher.Provider(),
		"cache", cfg.Cache.Driver,
	)

	return &Services{
		Store:       st,
		Cache:       c,
		Mailer:      dispatcher,
		Sandbox:     sandbox,
		Content:     content.NewService(st),
		Posts:       posts,
		Templates:   templates,
		Subscribers: subs,
		Broadcaster: bc,
		Geo:         geo.NewService(provider, c, cfg.Geo.CacheTTL, logger.With("component", "geo")),
	}, nil
}

// Close releases the cache and the store
func (s *Services) Close(ctx context.Context) error {
	if err := s.Cache.Close(); err != nil {
		return fmt.Errorf("failed to close cache: %w", err)
	}
	return s.Store.Close(ctx)
}

// OpenStore opens the configured document store
func OpenStore(ctx context.Context, cfg config.StorageConfig) (store.Store, error) {
	switch cfg.Driver {
	case "mongo":
		ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		st, err := store.OpenMongo(ctx, cfg.MongoURI, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to open mongo store: %w", err)
		}
		return st, nil
	default:
		st, err := store.OpenBolt(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open bolt store: %w", err)
		}
		return st, nil
	}
}

// NewLogger creates a logger based on configuration
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
