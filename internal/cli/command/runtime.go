package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/medpanel/medpanel-go/internal/cli/config"
	"github.com/medpanel/medpanel-go/internal/client/apiclient"
	"github.com/medpanel/medpanel-go/internal/client/events"
	"github.com/medpanel/medpanel-go/internal/client/httpclient"
	"github.com/medpanel/medpanel-go/internal/client/service"
	"github.com/medpanel/medpanel-go/internal/client/session"
	"github.com/medpanel/medpanel-go/internal/infra/buildinfo"
	"github.com/medpanel/medpanel-go/internal/infra/shutdown"
	"github.com/medpanel/medpanel-go/internal/storage"
	"github.com/medpanel/medpanel-go/internal/telemetry/logger"
	"github.com/medpanel/medpanel-go/internal/telemetry/metric"
	"github.com/medpanel/medpanel-go/pkg/crypto/sealer"
)

// LoginHint is printed when the user has to sign in again.
const LoginHint = "Run `medpanel-cli auth login` to sign in again."

// sealerPurpose binds sealed credentials to this use of the key file.
const sealerPurpose = "medpanel session store"

// Runtime holds everything a command needs to talk to the API. It is built
// once per process; the shell shares one Runtime across all its lines.
type Runtime struct {
	Config  *config.CLIConfig
	Logger  logger.Logger
	Metrics *metric.Registry

	Store    session.Store
	Expiry   *session.ExpiryHandler
	Client   *apiclient.Client
	Auth     *service.AuthService
	Patients *service.PatientService
	Profile  *service.ProfileService

	shutdown *shutdown.Handler
}

// RuntimeOptions carries process-level inputs that are not configuration.
type RuntimeOptions struct {
	Stderr  io.Writer
	Verbose bool
	// AfterFunc schedules the expiry redirect; nil uses time.AfterFunc.
	AfterFunc session.AfterFunc
}

// NewRuntime wires the logger, metrics, credential store, expiry handling,
// HTTP transport and API services from cfg.
func NewRuntime(cfg *config.CLIConfig, opts RuntimeOptions) (rt *Runtime, err error) {
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	level := cfg.Log.Level
	if opts.Verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:  level,
		Format: cfg.Log.Format,
		Output: stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	logger.SetDefault(log)

	rt = &Runtime{
		Config:   cfg,
		Logger:   log,
		Metrics:  metric.NewRegistry(),
		shutdown: shutdown.NewHandler(shutdown.DefaultTimeout),
	}
	defer func() {
		if err != nil {
			rt.Close()
			rt = nil
		}
	}()

	kv, err := openKV(cfg.Session, log, rt.Metrics)
	if err != nil {
		return rt, err
	}
	rt.shutdown.OnShutdown(func(context.Context) error {
		return kv.Close()
	})

	storeOpts := []session.KVStoreOption{session.WithStoreMetrics(rt.Metrics)}
	if cfg.Session.Encrypt {
		key, err := sealer.LoadOrCreateKey(cfg.Session.KeyFile)
		if err != nil {
			return rt, fmt.Errorf("load session key: %w", err)
		}
		s, err := sealer.New(key, sealerPurpose)
		if err != nil {
			return rt, fmt.Errorf("create sealer: %w", err)
		}
		log.Debug("session store encrypted", "algorithm", s.Algorithm())
		storeOpts = append(storeOpts, session.WithSealer(s))
	}
	rt.Store = session.NewKVStore(kv, storeOpts...)

	dispatcher := events.NewInMemoryDispatcher()
	unsubscribe := dispatcher.Subscribe(events.EventAuthExpired, func(_ context.Context, ev events.Event) error {
		log.Debug("received event", "type", ev.Type, "event_id", ev.ID)
		_, err := fmt.Fprintln(stderr, apiclient.MsgSessionExpired)
		return err
	})
	rt.shutdown.OnShutdown(func(context.Context) error {
		unsubscribe()
		return nil
	})

	expiryOpts := []session.ExpiryOption{
		session.WithDispatcher(dispatcher),
		session.WithNavigator(session.NavigatorFunc(func(_ context.Context, target string) {
			log.Debug("redirecting after expiry", "target", target)
			fmt.Fprintln(stderr, LoginHint)
		})),
		session.WithRedirect(cfg.Expiry.Delay, cfg.Expiry.Target),
		session.WithLogger(log),
		session.WithMetrics(rt.Metrics),
	}
	if opts.AfterFunc != nil {
		expiryOpts = append(expiryOpts, session.WithAfterFunc(opts.AfterFunc))
	}
	rt.Expiry = session.NewExpiryHandler(rt.Store, expiryOpts...)

	proxy := httpclient.ProxyConfig{
		HTTPProxy:   cfg.Proxy.HTTP,
		HTTPSProxy:  cfg.Proxy.HTTPS,
		SOCKS5Proxy: cfg.Proxy.SOCKS5,
		NoProxy:     cfg.Proxy.NoProxy,
	}
	hc, err := httpclient.New(httpclient.Options{
		Timeout: cfg.API.Timeout,
		CAFile:  cfg.TLS.CAFile,
		Proxy:   proxy,
	})
	if err != nil {
		return rt, fmt.Errorf("create http client: %w", err)
	}

	rt.Client, err = apiclient.New(cfg.API.URL,
		apiclient.WithHTTPClient(hc),
		apiclient.WithStore(rt.Store),
		apiclient.WithExpirer(rt.Expiry),
		apiclient.WithRateLimit(cfg.API.RPS, cfg.API.Burst),
		apiclient.WithLogger(log),
		apiclient.WithMetrics(rt.Metrics),
		apiclient.WithUserAgent(buildinfo.UserAgent()),
	)
	if err != nil {
		return rt, err
	}
	log.Debug("api client ready", "base_url", rt.Client.BaseURL(), "proxy", proxy.String())

	rt.Auth = service.NewAuthService(rt.Client)
	rt.Patients = service.NewPatientService(rt.Client)
	rt.Profile = service.NewProfileService(rt.Client)
	return rt, nil
}

func openKV(cfg config.SessionConfig, log logger.Logger, metrics *metric.Registry) (storage.KV, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemoryKV(), nil
	default:
		kv, err := storage.NewBadgerKV(storage.DefaultKVConfig(cfg.Dir), log)
		if err != nil {
			return nil, fmt.Errorf("open session store %s: %w", cfg.Dir, err)
		}
		if err := kv.RegisterMetrics(metrics.Registerer()); err != nil {
			log.Warn("session store metrics not registered", "error", err)
		}
		return kv, nil
	}
}

// WaitRedirect blocks until a scheduled expiry redirect has run, up to the
// configured delay plus grace.
func (rt *Runtime) WaitRedirect(grace time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), rt.Config.Expiry.Delay+grace)
	defer cancel()
	if err := rt.Expiry.Wait(ctx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// LoggedIn reports whether a credential is stored. Read errors count as
// logged out.
func (rt *Runtime) LoggedIn(ctx context.Context) bool {
	ok, err := rt.Auth.LoggedIn(ctx)
	return err == nil && ok
}

// Close releases the credential store. It is safe to call more than once.
func (rt *Runtime) Close() error {
	return rt.shutdown.Shutdown()
}
