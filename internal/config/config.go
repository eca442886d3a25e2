package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Mail      MailConfig      `yaml:"mail"`
	Templates TemplatesConfig `yaml:"templates"` // Email template ids per use case
	Links     LinksConfig     `yaml:"links"`     // Public URLs embedded into emails
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Geo       GeoConfig       `yaml:"geo"`
	Cache     CacheConfig     `yaml:"cache"`
	Metrics   MetricsConfig   `yaml:"metrics"` // Prometheus metrics configuration
	Logging   LoggingConfig   `yaml:"logging"`
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr      string          `yaml:"listen_addr" env:"JOURNEY_LISTEN_ADDR"`
	APIKey          string          `yaml:"api_key" env:"API_KEY"`
	CORSOrigins     []string        `yaml:"cors_origins" env:"JOURNEY_CORS_ORIGINS" envSeparator:","`
	ReadTimeout     time.Duration   `yaml:"read_timeout"`
	WriteTimeout    time.Duration   `yaml:"write_timeout"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout"`
	MaxHeaderBytes  int             `yaml:"max_header_bytes"`
	MaxBodyBytes    int64           `yaml:"max_body_bytes"`
	SignupRateLimit RateLimitConfig `yaml:"signup_rate_limit"` // Per client IP
	TLS             TLSConfig       `yaml:"tls"`
}

// RateLimitConfig contains token bucket settings
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// TLSConfig contains TLS settings for the API listener
type TLSConfig struct {
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig contains Let's Encrypt settings
type ACMEConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Email    string   `yaml:"email"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
	HTTPAddr string   `yaml:"http_addr"` // HTTP-01 challenge listener, default :80
}

// StorageConfig contains document store settings
type StorageConfig struct {
	Driver   string        `yaml:"driver" env:"JOURNEY_STORAGE_DRIVER"` // bolt, mongo
	Path     string        `yaml:"path" env:"JOURNEY_STORAGE_PATH"`     // bolt file
	MongoURI string        `yaml:"mongo_uri" env:"MONGO_URI"`
	Database string        `yaml:"database" env:"MONGO_DATABASE"`
	Timeout  time.Duration `yaml:"timeout"`
}

// MailConfig contains outbound email settings
type MailConfig struct {
	Provider  string        `yaml:"provider" env:"MAIL_PROVIDER"` // resend, ses, smtp, sandbox
	FromEmail string        `yaml:"from_email" env:"MAIL_FROM_EMAIL"`
	FromName  string        `yaml:"from_name" env:"MAIL_FROM_NAME"`
	ReplyTo   string        `yaml:"reply_to"`
	Resend    ResendConfig  `yaml:"resend"`
	SES       SESConfig     `yaml:"ses"`
	SMTP      SMTPConfig    `yaml:"smtp"`
	Sandbox   SandboxConfig `yaml:"sandbox"`
}

// SandboxConfig contains settings for the capturing provider
type SandboxConfig struct {
	FailRecipients []string `yaml:"fail_recipients"` // Sends to these addresses fail
}

// ResendConfig contains Resend API settings
type ResendConfig struct {
	APIKey string `yaml:"api_key" env:"MAIL_API_KEY"`
}

// SESConfig contains Amazon SES settings
type SESConfig struct {
	Region    string `yaml:"region" env:"AWS_SES_REGION"`
	AccessKey string `yaml:"access_key" env:"AWS_SES_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"AWS_SES_SECRET_KEY"`
}

// SMTPConfig contains SMTP relay settings
type SMTPConfig struct {
	Host     string        `yaml:"host" env:"SMTP_HOST"`
	Port     int           `yaml:"port" env:"SMTP_PORT"`
	Username string        `yaml:"username" env:"SMTP_USERNAME"`
	Password string        `yaml:"password" env:"SMTP_PASSWORD"`
	TLS      string        `yaml:"tls"` // starttls, implicit, none
	Hostname string        `yaml:"hostname"`
	Timeout  time.Duration `yaml:"timeout"`
	DKIM     DKIMConfig    `yaml:"dkim"`
}

// DKIMConfig contains DKIM signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Selector string `yaml:"selector"`
	Domain   string `yaml:"domain"`
	KeyFile  string `yaml:"key_file"`
}

// TemplatesConfig holds the email template identifiers per purpose.
// Empty values are reported per request, not at startup.
type TemplatesConfig struct {
	NewsletterWelcome      string `yaml:"newsletter_welcome" env:"NEWSLETTER_WELCOME_EMAIL_TEMPLATE_ID"`
	WaitlistWelcome        string `yaml:"waitlist_welcome" env:"WAITLIST_WELCOME_EMAIL_TEMPLATE_ID"`
	NewsletterNotification string `yaml:"newsletter_notification" env:"NEWSLETTER_EMAIL_TEMPLATE_ID"`
	WaitlistNotification   string `yaml:"waitlist_notification" env:"WAITLIST_EMAIL_TEMPLATE_ID"`
}

// LinksConfig contains URL bases used when rendering emails
type LinksConfig struct {
	NewsletterPost string `yaml:"newsletter_post"` // post id is appended
	WaitlistPost   string `yaml:"waitlist_post"`
	PublicAPIURL   string `yaml:"public_api_url" env:"JOURNEY_PUBLIC_API_URL"` // base of unsubscribe links
}

// BroadcastConfig contains notification fan-out settings
type BroadcastConfig struct {
	Concurrency int `yaml:"concurrency" env:"JOURNEY_BROADCAST_CONCURRENCY"`
}

// GeoConfig contains mapping API settings
type GeoConfig struct {
	APIKey   string        `yaml:"api_key" env:"GOOGLE_MAPS_KEY"`
	Types    string        `yaml:"types"` // (cities), (regions), geocode, ...
	Language string        `yaml:"language"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// CacheConfig contains cache backend settings
type CacheConfig struct {
	Driver   string `yaml:"driver" env:"JOURNEY_CACHE_DRIVER"` // "", memory, redis
	RedisURL string `yaml:"redis_url" env:"REDIS_URL"`
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled" env:"JOURNEY_METRICS_ENABLED"`
	ListenAddr string   `yaml:"listen_addr"` // Default: :9090
	Path       string   `yaml:"path"`        // Default: /metrics
	AllowedIPs []string `yaml:"allowed_ips"` // IP addresses/CIDRs allowed to access metrics
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level" env:"JOURNEY_LOG_LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"JOURNEY_LOG_FORMAT"` // json, text
}

// Load loads configuration from an optional YAML file, a .env file in the
// working directory and the process environment, in that order of precedence
// (environment wins).
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8000"
	}
	if len(c.API.CORSOrigins) == 0 {
		c.API.CORSOrigins = []string{"https://journey.thehightabl.com", "http://localhost:3000"}
	}
	if c.API.MaxHeaderBytes == 0 {
		c.API.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.API.MaxBodyBytes == 0 {
		c.API.MaxBodyBytes = 1 << 20
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		// Broadcasts run inside the request
		c.API.WriteTimeout = 5 * time.Minute
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}
	if c.API.SignupRateLimit.RequestsPerSecond == 0 {
		c.API.SignupRateLimit.RequestsPerSecond = 1
	}
	if c.API.SignupRateLimit.Burst == 0 {
		c.API.SignupRateLimit.Burst = 5
	}
	if c.API.TLS.ACME.CacheDir == "" {
		c.API.TLS.ACME.CacheDir = "/var/lib/journey/certs"
	}
	if c.API.TLS.ACME.HTTPAddr == "" {
		c.API.TLS.ACME.HTTPAddr = ":80"
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "bolt"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/journey/journey.db"
	}
	if c.Storage.Database == "" {
		c.Storage.Database = "blog"
	}
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = 10 * time.Second
	}

	if c.Mail.Provider == "" {
		c.Mail.Provider = "resend"
	}
	if c.Mail.SMTP.Port == 0 {
		c.Mail.SMTP.Port = 587
	}
	if c.Mail.SMTP.TLS == "" {
		c.Mail.SMTP.TLS = "starttls"
	}
	if c.Mail.SMTP.Hostname == "" {
		hostname, _ := os.Hostname()
		c.Mail.SMTP.Hostname = hostname
	}
	if c.Mail.SMTP.Timeout == 0 {
		c.Mail.SMTP.Timeout = 30 * time.Second
	}

	if c.Links.NewsletterPost == "" {
		c.Links.NewsletterPost = "https://journey.thehightabl.com/post?id="
	}
	if c.Links.WaitlistPost == "" {
		c.Links.WaitlistPost = "https://journey.thehightabl.com/posts/article/"
	}
	if c.Links.PublicAPIURL == "" {
		c.Links.PublicAPIURL = "https://journey-api.thehightabl.com"
	}

	if c.Broadcast.Concurrency == 0 {
		c.Broadcast.Concurrency = 1
	}

	if c.Geo.Types == "" {
		c.Geo.Types = "(cities)"
	}
	if c.Geo.CacheTTL == 0 {
		c.Geo.CacheTTL = 24 * time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	// Metrics defaults
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.API.APIKey == "" {
		return fmt.Errorf("api.api_key is required")
	}

	if c.API.SignupRateLimit.Enabled && c.API.SignupRateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("api.signup_rate_limit.requests_per_second must not be negative")
	}

	if err := c.validateTLS(); err != nil {
		return err
	}

	switch c.Storage.Driver {
	case "bolt":
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for bolt driver")
		}
	case "mongo":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("storage.mongo_uri is required for mongo driver")
		}
	default:
		return fmt.Errorf("invalid storage.driver: %s (must be bolt or mongo)", c.Storage.Driver)
	}

	if err := c.validateMail(); err != nil {
		return err
	}

	if c.Broadcast.Concurrency < 1 {
		return fmt.Errorf("broadcast.concurrency must be at least 1")
	}

	switch c.Cache.Driver {
	case "", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("cache.redis_url is required for redis driver")
		}
	default:
		return fmt.Errorf("invalid cache.driver: %s (must be memory or redis)", c.Cache.Driver)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// validateTLS validates TLS configuration
func (c *Config) validateTLS() error {
	tls := c.API.TLS
	hasCerts := tls.CertFile != "" || tls.KeyFile != ""

	if hasCerts && tls.ACME.Enabled {
		return fmt.Errorf("cannot use both manual certificates and ACME")
	}

	if hasCerts && (tls.CertFile == "" || tls.KeyFile == "") {
		return fmt.Errorf("api.tls.cert_file and api.tls.key_file must be set together")
	}

	if tls.ACME.Enabled {
		if tls.ACME.Email == "" {
			return fmt.Errorf("api.tls.acme.email is required when ACME is enabled")
		}
		if len(tls.ACME.Domains) == 0 {
			return fmt.Errorf("api.tls.acme.domains is required when ACME is enabled")
		}
	}

	return nil
}

// validateMail validates the selected mail provider
func (c *Config) validateMail() error {
	if c.Mail.Provider != "sandbox" && c.Mail.FromEmail == "" {
		return fmt.Errorf("mail.from_email is required")
	}

	switch c.Mail.Provider {
	case "resend":
		if c.Mail.Resend.APIKey == "" {
			return fmt.Errorf("mail.resend.api_key is required for resend provider")
		}
	case "ses":
		if c.Mail.SES.Region == "" {
			return fmt.Errorf("mail.ses.region is required for ses provider")
		}
	case "smtp":
		if c.Mail.SMTP.Host == "" {
			return fmt.Errorf("mail.smtp.host is required for smtp provider")
		}
		validModes := map[string]bool{"starttls": true, "implicit": true, "none": true}
		if !validModes[c.Mail.SMTP.TLS] {
			return fmt.Errorf("invalid mail.smtp.tls: %s (must be starttls, implicit, or none)", c.Mail.SMTP.TLS)
		}
		dkim := c.Mail.SMTP.DKIM
		if dkim.Enabled && (dkim.Selector == "" || dkim.Domain == "" || dkim.KeyFile == "") {
			return fmt.Errorf("mail.smtp.dkim requires selector, domain and key_file when enabled")
		}
	case "sandbox":
	default:
		return fmt.Errorf("invalid mail.provider: %s (must be resend, ses, smtp, or sandbox)", c.Mail.Provider)
	}

	return nil
}
