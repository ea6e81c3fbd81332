package apiclient

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/medpanel/medpanel-go/internal/client/session"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
)

// Expirer performs the forced logout. *session.ExpiryHandler implements it.
type Expirer interface {
	Handle(ctx context.Context)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStore sets the credential store read for the Authorization header.
func WithStore(s session.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithExpirer sets the handler invoked when a response signals an expired
// session. By default a session.ExpiryHandler over the client's store is
// used, with no navigator.
func WithExpirer(e Expirer) Option {
	return func(c *Client) { c.expirer = e }
}

// WithRateLimit spaces out requests client-side. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metric.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}
