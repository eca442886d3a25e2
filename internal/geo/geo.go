// Package geo serves place autocompletion for signup forms.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/foxzi/journey/internal/apperr"
	"github.com/foxzi/journey/internal/cache"
	"github.com/foxzi/journey/internal/config"
	"github.com/foxzi/journey/internal/metrics"
)

// ErrNotConfigured is returned when no mapping API key is set
var ErrNotConfigured = errors.New("geolocation provider is not configured")

// Provider returns place descriptions matching input
type Provider interface {
	Autocomplete(ctx context.Context, input string) ([]string, error)
}

// GoogleProvider queries the Google Places autocomplete API
type GoogleProvider struct {
	client   *maps.Client
	types    maps.AutocompletePlaceType
	language string
}

// NewGoogleProvider creates a provider. baseURL overrides the API host and
// may be empty.
func NewGoogleProvider(cfg config.GeoConfig, baseURL string) (*GoogleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	opts := []maps.ClientOption{maps.WithAPIKey(cfg.APIKey)}
	if baseURL != "" {
		opts = append(opts, maps.WithBaseURL(baseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}

	return &GoogleProvider{
		client:   client,
		types:    maps.AutocompletePlaceType(cfg.Types),
		language: cfg.Language,
	}, nil
}

func (p *GoogleProvider) Autocomplete(ctx context.Context, input string) ([]string, error) {
	resp, err := p.client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:    input,
		Types:    p.types,
		Language: p.language,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(resp.Predictions))
	for _, pred := range resp.Predictions {
		out = append(out, pred.Description)
	}
	return out, nil
}

// Service validates input and caches provider results
type Service struct {
	provider Provider
	cache    cache.Cache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewService creates a geolocation service. provider may be nil, in which
// case every lookup fails with a configuration error. c may be nil.
func NewService(provider Provider, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	return &Service{provider: provider, cache: c, ttl: ttl, logger: logger}
}

// Autocomplete returns place descriptions for input
func (s *Service) Autocomplete(ctx context.Context, input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, apperr.Invalid("input is required")
	}
	if s.provider == nil {
		return nil, apperr.Configuration(ErrNotConfigured.Error())
	}

	key := "geo:" + strings.ToLower(input)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key); err == nil {
			var places []string
			if err := json.Unmarshal(cached, &places); err == nil {
				metrics.IncGeoCache("hit")
				return places, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("geo cache read failed", "error", err)
		}
		metrics.IncGeoCache("miss")
	}

	places, err := s.provider.Autocomplete(ctx, input)
	if err != nil {
		s.logger.Error("autocomplete failed", "input", input, "error", err)
		return nil, apperr.Upstream("Error fetching locations", err)
	}

	if s.cache != nil {
		data, _ := json.Marshal(places)
		if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
			s.logger.Warn("geo cache write failed", "error", err)
		}
	}

	return places, nil
}
