package session

import (
	"context"
	"sync"
	"time"

	"github.com/medpanel/medpanel-go/internal/client/events"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
)

// Redirect defaults.
const (
	DefaultRedirectDelay  = 500 * time.Millisecond
	DefaultRedirectTarget = "/?session=expired"
)

// Navigator moves the host to another entry point. For a CLI this means
// printing the login hint; for a shell it also resets the prompt.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) { f(ctx, target) }

// AfterFunc schedules f after d. time.AfterFunc satisfies it once wrapped.
type AfterFunc func(d time.Duration, f func())

// ExpiryHandler performs the forced logout when a session is found invalid.
//
// Handle is single-flight: while a redirect is pending, further calls still
// clear the store but neither re-publish nor schedule a second redirect.
type ExpiryHandler struct {
	store      Store
	dispatcher events.Dispatcher
	navigator  Navigator
	delay      time.Duration
	target     string
	afterFunc  AfterFunc
	logger     logger.Logger
	metrics    *metric.Registry

	mu      sync.Mutex
	pending bool
	done    chan struct{}
}

// ExpiryOption configures an ExpiryHandler.
type ExpiryOption func(*ExpiryHandler)

func WithDispatcher(d events.Dispatcher) ExpiryOption {
	return func(h *ExpiryHandler) { h.dispatcher = d }
}

func WithNavigator(n Navigator) ExpiryOption {
	return func(h *ExpiryHandler) { h.navigator = n }
}

// WithRedirect overrides the redirect delay and target. Zero values keep
// the defaults.
func WithRedirect(delay time.Duration, target string) ExpiryOption {
	return func(h *ExpiryHandler) {
		if delay > 0 {
			h.delay = delay
		}
		if target != "" {
			h.target = target
		}
	}
}

// WithAfterFunc replaces the timer, mainly for tests.
func WithAfterFunc(f AfterFunc) ExpiryOption {
	return func(h *ExpiryHandler) { h.afterFunc = f }
}

func WithLogger(l logger.Logger) ExpiryOption {
	return func(h *ExpiryHandler) { h.logger = l }
}

func WithMetrics(m *metric.Registry) ExpiryOption {
	return func(h *ExpiryHandler) { h.metrics = m }
}

// NewExpiryHandler creates a handler that clears store on expiry.
func NewExpiryHandler(store Store, opts ...ExpiryOption) *ExpiryHandler {
	h := &ExpiryHandler{
		store:  store,
		delay:  DefaultRedirectDelay,
		target: DefaultRedirectTarget,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle clears the credential record, publishes events.EventAuthExpired and
// schedules the redirect. It never fails; problems are logged.
func (h *ExpiryHandler) Handle(ctx context.Context) {
	log := logger.Enrich(ctx, h.logger)
	if err := h.store.Clear(ctx); err != nil {
		log.Warn("failed to clear credential after expiry", "error", err)
	}

	h.mu.Lock()
	if h.pending {
		h.mu.Unlock()
		return
	}
	h.pending = true
	h.done = make(chan struct{})
	h.mu.Unlock()

	h.metrics.IncSessionExpired()
	log.Info("session expired", "redirect", h.target, "delay", h.delay)

	if h.dispatcher != nil {
		if err := h.dispatcher.Publish(ctx, events.NewEvent(events.EventAuthExpired)); err != nil {
			log.Warn("auth:expired subscriber failed", "error", err)
		}
	}

	h.afterFunc(h.delay, h.redirect)
}

// redirect runs on the timer. It outlives the request that triggered it.
func (h *ExpiryHandler) redirect() {
	if h.navigator != nil {
		h.navigator.Navigate(context.Background(), h.target)
	}

	h.mu.Lock()
	h.pending = false
	close(h.done)
	h.mu.Unlock()
}

// Pending reports whether a redirect is scheduled but has not run yet.
func (h *ExpiryHandler) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending
}

// Wait blocks until a pending redirect has run or ctx is done. It returns
// immediately when nothing is pending.
func (h *ExpiryHandler) Wait(ctx context.Context) error {
	h.mu.Lock()
	if !h.pending {
		h.mu.Unlock()
		return nil
	}
	done := h.done
	h.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
