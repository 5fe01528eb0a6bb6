// Package update performs a once-a-day check for a newer release. The
// check is wired to the quota day rollover so it runs at most once per
// reference-zone day.
package update

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	checkTimeout = 10 * time.Second
	maxBodyBytes = 1 << 10
)

// Checker fetches a plain-text version string from a well-known URL and
// logs when it differs from the running version.
type Checker struct {
	client  *http.Client
	url     string
	version string
	logger  zerolog.Logger
}

func NewChecker(url, currentVersion string, logger zerolog.Logger) *Checker {
	return &Checker{
		client:  &http.Client{Timeout: checkTimeout},
		url:     url,
		version: currentVersion,
		logger:  logger.With().Str("component", "update").Logger(),
	}
}

// Check fetches the latest published version. A network failure is not an
// error worth surfacing; the next rollover retries.
func (c *Checker) Check(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", fmt.Errorf("build version request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch version: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read version response: %w", err)
	}
	return strings.TrimSpace(string(body)), nil
}

// RolloverHook returns a quota rollover hook that logs when a newer
// version is available.
func (c *Checker) RolloverHook() func(time.Time) {
	return func(now time.Time) {
		ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
		defer cancel()

		latest, err := c.Check(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("version check skipped")
			return
		}
		if latest != "" && latest != c.version {
			c.logger.Info().
				Str("running", c.version).
				Str("latest", latest).
				Msg("a newer release is available")
			return
		}
		c.logger.Debug().Str("version", c.version).Msg("running the latest release")
	}
}
