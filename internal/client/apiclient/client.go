package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/medpanel/medpanel-go/internal/client/session"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8081/api"

// DefaultUserAgent identifies the client to the API.
const DefaultUserAgent = "medpanel-cli"

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 10 << 20

// Client executes requests against the API. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      session.Store
	expirer    Expirer
	limiter    *rate.Limiter
	logger     logger.Logger
	metrics    *metric.Registry
	userAgent  string
}

// New creates a client for baseURL (e.g. "http://localhost:8081/api").
// Request paths are appended to it verbatim.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base URL %q", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.Nop(),
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.store == nil {
		c.store = session.NewMemoryStore()
	}
	if c.expirer == nil {
		c.expirer = session.NewExpiryHandler(c.store,
			session.WithLogger(c.logger),
			session.WithMetrics(c.metrics),
		)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Logger returns the logger the client was configured with.
func (c *Client) Logger() logger.Logger {
	return c.logger
}

// Store returns the credential store the client reads tokens from.
func (c *Client) Store() session.Store {
	return c.store
}

// Do performs one request. body, when non-nil, is sent as JSON. On 2xx the
// response is decoded into out (if non-nil); an empty body leaves out
// untouched. On non-2xx an *APIError is returned; transport and parse
// failures return *TransportError.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	target := c.url(path)

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("apiclient: encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.transportErr(OpSend, method, target, 0, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, payload)
	if err != nil {
		return c.transportErr(OpSend, method, target, 0, err)
	}

	requestID := ulid.Make().String()
	ctx = logger.WithRequestID(logger.WithLogger(ctx, c.logger), requestID)
	log := logger.L(ctx)
	c.setHeaders(ctx, req, requestID, log)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("api request failed", "method", method, "path", path, "error", err)
		return c.transportErr(OpSend, method, target, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(method, resp.StatusCode, elapsed)
	log.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", elapsed,
	)
	if err != nil {
		return c.transportErr(OpRead, method, target, resp.StatusCode, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return c.transportErr(OpDecode, method, target, resp.StatusCode, err)
		}
		return nil
	}

	return c.classify(ctx, resp.StatusCode, data, log)
}

// classify turns a non-2xx answer into an *APIError, forcing a logout when
// the session is no longer valid. Non-JSON bodies are classified by status
// alone.
func (c *Client) classify(ctx context.Context, status int, data []byte, log logger.Logger) error {
	eb := parseErrorBody(data)

	if SessionExpired(status, eb.Message) {
		log.Info("session expired", "status", status, "message", eb.Message)
		// The logout must complete even if the caller gives up on ctx.
		c.expirer.Handle(context.WithoutCancel(ctx))
		return &APIError{
			Status:  status,
			Message: MsgSessionExpired,
			Errors:  eb.Errors,
			expired: true,
		}
	}

	msg := eb.Message
	if msg == "" {
		msg = MsgFallback
	}
	return &APIError{Status: status, Message: msg, Errors: eb.Errors}
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, requestID string, log logger.Logger) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	cred, err := c.store.Get(ctx)
	switch {
	case err == nil && cred.Token != "":
		req.Header.Set("Authorization", "Bearer "+cred.Token)
	case err != nil && !errors.Is(err, session.ErrNoCredential):
		log.Warn("credential store unreadable, sending without authorization", "error", err)
	}
}

func (c *Client) url(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

func (c *Client) transportErr(op, method, target string, status int, err error) error {
	c.metrics.IncTransportError(op)
	return &TransportError{Op: op, Method: method, URL: target, Status: status, Err: err}
}
