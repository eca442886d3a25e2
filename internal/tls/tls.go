// Package tls builds the TLS configuration of the API listener from either
// static PEM files or Let's Encrypt.
package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/crypto/acme/autocert"

	"github.com/foxzi/journey/internal/config"
)

// Setup is the TLS state of the API listener
type Setup struct {
	Config *tls.Config
	// ACME is set when certificates come from Let's Encrypt
	ACME *ACMEManager
}

// FromConfig returns nil when TLS is not configured
func FromConfig(cfg config.TLSConfig) (*Setup, error) {
	switch {
	case cfg.ACME.Enabled:
		m := NewACMEManager(cfg.ACME)
		return &Setup{Config: m.TLSConfig(), ACME: m}, nil
	case cfg.CertFile != "":
		c, err := LoadCertificate(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}
		return &Setup{Config: c}, nil
	default:
		return nil, nil
	}
}

// LoadCertificate loads a certificate and key from PEM files
func LoadCertificate(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// CertificateInfo describes one certificate
type CertificateInfo struct {
	Domain   string
	NotAfter time.Time
	DaysLeft int
}

func describe(domain string, der []byte) (CertificateInfo, error) {
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return CertificateInfo{}, err
	}
	if domain == "" {
		domain = leaf.Subject.CommonName
	}
	return CertificateInfo{
		Domain:   domain,
		NotAfter: leaf.NotAfter,
		DaysLeft: int(time.Until(leaf.NotAfter).Hours() / 24),
	}, nil
}

// InspectFile reads expiry information from a PEM certificate file
func InspectFile(certFile string) (*CertificateInfo, error) {
	data, err := os.ReadFile(certFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	info, err := describe("", block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return &info, nil
}

// ACMEManager obtains and renews certificates via HTTP-01 challenges
type ACMEManager struct {
	manager  *autocert.Manager
	domains  []string
	cache    autocert.DirCache
	httpAddr string
}

// NewACMEManager creates a manager for the configured domains
func NewACMEManager(cfg config.ACMEConfig) *ACMEManager {
	cache := autocert.DirCache(cfg.CacheDir)
	return &ACMEManager{
		manager: &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Email:      cfg.Email,
			HostPolicy: autocert.HostWhitelist(cfg.Domains...),
			Cache:      cache,
		},
		domains:  cfg.Domains,
		cache:    cache,
		httpAddr: cfg.HTTPAddr,
	}
}

// TLSConfig returns a config that fetches certificates on demand
func (a *ACMEManager) TLSConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: a.manager.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}
}

// HTTPAddr is the listen address of the challenge server
func (a *ACMEManager) HTTPAddr() string {
	return a.httpAddr
}

// HTTPHandler answers HTTP-01 challenges and passes other requests to fallback
func (a *ACMEManager) HTTPHandler(fallback http.Handler) http.Handler {
	return a.manager.HTTPHandler(fallback)
}

// CachedCertificates lists certificates already in the cache directory.
// Domains without a usable cached certificate are skipped.
func (a *ACMEManager) CachedCertificates(ctx context.Context) []CertificateInfo {
	var out []CertificateInfo
	for _, domain := range a.domains {
		data, err := a.cache.Get(ctx, domain)
		if err != nil {
			continue
		}
		cert, err := tls.X509KeyPair(data, data)
		if err != nil || len(cert.Certificate) == 0 {
			continue
		}
		info, err := describe(domain, cert.Certificate[0])
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	return out
}
