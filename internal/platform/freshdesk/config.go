// Package freshdesk implements platform.Adapter against the Freshdesk REST
// API (https://developers.freshdesk.com/api/): ticket listing, ticket +
// conversation + attachment fetch, and KB article fetch, with the rate-limit
// handling the platform adapter contract requires.
package freshdesk

import (
	"errors"
	"net/http"
	"time"

	"github.com/wedosoft/ticketrag/internal/platform"
)

// Config configures one Freshdesk adapter instance, one per tenant domain.
type Config struct {
	// Domain is the tenant's Freshdesk subdomain, e.g. "acme" for
	// acme.freshdesk.com.
	Domain string
	APIKey string

	HTTPClient *http.Client
	BaseURL    string // override for tests; defaults to https://<domain>.freshdesk.com

	RateLimits platform.RateLimits
	Backoff    platform.BackoffPolicy
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Domain == "" {
		return errors.New("domain is required")
	}
	if c.APIKey == "" {
		return errors.New("api key is required")
	}
	return nil
}

// DefaultRateLimits matches Freshdesk's documented default plan limits; a
// real deployment overrides these from the account's actual plan.
var DefaultRateLimits = platform.RateLimits{
	RequestsPerMinute: 50,
	Burst:             10,
	ConcurrentMax:     5,
}

func (c *Config) withDefaults() *Config {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://" + c.Domain + ".freshdesk.com"
	}
	if c.RateLimits == (platform.RateLimits{}) {
		c.RateLimits = DefaultRateLimits
	}
	if c.Backoff == (platform.BackoffPolicy{}) {
		c.Backoff = platform.DefaultBackoffPolicy
	}
	return c
}
