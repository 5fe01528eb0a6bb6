// Package geo resolves human-friendly location specs into provider query
// targets. Station ids pass through untouched; "city:Name,Country" specs
// are geocoded once at startup so the poll loop never pays for a geocoder
// round trip.
package geo

import (
	"fmt"
	"strings"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"

	"github.com/jlmoray/stationwatch/internal/provider"
)

// CityPrefix marks a location spec that needs geocoding.
const CityPrefix = "city:"

// Resolver turns location specs into provider queries.
type Resolver struct {
	apiKey string
	logger zerolog.Logger
}

// NewResolver creates a resolver. apiKey is the Google geocoding key; it
// is only required when city: specs are actually used.
func NewResolver(apiKey string, logger zerolog.Logger) *Resolver {
	return &Resolver{
		apiKey: apiKey,
		logger: logger.With().Str("component", "geo").Logger(),
	}
}

// Resolve maps one location spec to a provider query target.
func (r *Resolver) Resolve(spec string) (string, error) {
	place, ok := strings.CutPrefix(spec, CityPrefix)
	if !ok {
		return spec, nil
	}
	if r.apiKey == "" {
		return "", fmt.Errorf("location %q needs geocoding but no geocoder api key is configured", spec)
	}

	address := geocoder.Address{}
	parts := strings.SplitN(place, ",", 2)
	address.City = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		address.Country = strings.TrimSpace(parts[1])
	}
	if address.City == "" {
		return "", fmt.Errorf("location %q has no city name", spec)
	}

	geocoder.ApiKey = r.apiKey
	location, err := geocoder.Geocoding(address)
	if err != nil {
		return "", fmt.Errorf("geocode %q: %w", spec, err)
	}

	resolved := fmt.Sprintf("%s%.4f,%.4f", provider.GeoPrefix, location.Latitude, location.Longitude)
	r.logger.Info().Str("spec", spec).Str("resolved", resolved).Msg("location geocoded")
	return resolved, nil
}
