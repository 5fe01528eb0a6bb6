package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jlmoray/stationwatch/internal/wx"
)

// ErrNoAPIKey signals that no provider key is configured; nothing can be
// fetched until one is supplied.
var ErrNoAPIKey = errors.New("provider api key is not configured")

const (
	defaultBaseURL = "https://api.weather.com/v2/pws"

	// GeoPrefix marks a location that queries by coordinates rather than
	// by station id, e.g. "geo:48.20,16.37".
	GeoPrefix = "geo:"

	maxBodyBytes = 1 << 20
)

// Wunderground fetches current personal-weather-station observations. One
// request covers one location; the response document stays raw and is
// normalized downstream.
type Wunderground struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  zerolog.Logger
}

// NewWunderground creates the provider client. The passed http.Client
// carries the bounded request timeout.
func NewWunderground(client *http.Client, apiKey string, logger zerolog.Logger) *Wunderground {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "wunderground",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Wunderground{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
		logger:  logger.With().Str("component", "provider").Logger(),
	}
}

// SetBaseURL overrides the provider endpoint, for tests.
func (p *Wunderground) SetBaseURL(base string) {
	p.baseURL = strings.TrimRight(base, "/")
}

// Fetch retrieves the raw observation document for one location. A
// malformed body decodes to an empty document rather than an error, so
// only transport-level failures surface here.
func (p *Wunderground) Fetch(ctx context.Context, location string, units wx.UnitSystem) (wx.Document, error) {
	if p.apiKey == "" {
		return wx.Document{}, ErrNoAPIKey
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("format", "json")
		values.Set("units", units.QueryCode())
		values.Set("apiKey", p.apiKey)

		path := "/observations/current"
		if coords, ok := strings.CutPrefix(location, GeoPrefix); ok {
			path = "/observations/near"
			values.Set("geocode", coords)
		} else {
			values.Set("stationId", location)
		}

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	started := time.Now()
	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, p.logger, buildRequest)
	if err != nil {
		return wx.Document{}, fmt.Errorf("fetch %s: %w", location, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return wx.Document{}, fmt.Errorf("read body for %s: %w", location, err)
	}

	p.logger.Debug().
		Str("location", location).
		Dur("took", time.Since(started)).
		Int("bytes", len(body)).
		Msg("observation downloaded")

	return wx.ParseDocument(body), nil
}
