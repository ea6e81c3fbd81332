// Package httpclient builds the *http.Client used by the API client, with
// optional proxy and private CA support.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/medpanel/medpanel-go/internal/infra/tlsroots"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// ProxyConfig holds outbound proxy settings.
type ProxyConfig struct {
	HTTPProxy   string
	HTTPSProxy  string
	SOCKS5Proxy string
	// NoProxy is a comma-separated list of hosts or domain suffixes.
	NoProxy string
}

// HasProxy reports whether any proxy is configured.
func (c ProxyConfig) HasProxy() bool {
	return c.HTTPProxy != "" || c.HTTPSProxy != "" || c.SOCKS5Proxy != ""
}

// Options configures the HTTP client.
type Options struct {
	// Timeout for whole requests (default: 30s).
	Timeout time.Duration
	Proxy   ProxyConfig
	// CAFile is an optional PEM bundle trusted in addition to system roots.
	CAFile string
}

// New creates an HTTP client.
func New(opts Options) (*http.Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// Proxies come from configuration only, never from the environment.
	transport.Proxy = nil

	tlsCfg, err := tlsroots.ClientConfig(opts.CAFile)
	if err != nil {
		return nil, err
	}
	transport.TLSClientConfig = tlsCfg

	if opts.Proxy.HasProxy() {
		if err := opts.Proxy.apply(transport); err != nil {
			return nil, fmt.Errorf("configure proxy: %w", err)
		}
	}

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}, nil
}

// apply routes the transport through the configured proxy. A SOCKS5 proxy
// replaces the dialer and wins over HTTP(S) proxies.
func (c ProxyConfig) apply(t *http.Transport) error {
	if c.SOCKS5Proxy != "" {
		dial, err := socksDialer(c.SOCKS5Proxy)
		if err != nil {
			return err
		}
		t.DialContext = dial
		return nil
	}
	t.Proxy = func(req *http.Request) (*url.URL, error) {
		return c.proxyFor(req.URL)
	}
	return nil
}

func socksDialer(raw string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("SOCKS5 proxy: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("SOCKS5 proxy %s: no host", redactUserinfo(raw))
	}

	var auth *proxy.Auth
	if u.User != nil {
		pw, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pw}
	}
	d, err := proxy.SOCKS5("tcp", u.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("SOCKS5 dialer: %w", err)
	}

	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return d.Dial(network, addr)
	}, nil
}

// proxyFor picks the proxy for a request target, or nil to go direct.
func (c ProxyConfig) proxyFor(target *url.URL) (*url.URL, error) {
	if c.bypass(target.Host) {
		return nil, nil
	}
	raw := c.HTTPProxy
	if target.Scheme == "https" && c.HTTPSProxy != "" {
		raw = c.HTTPSProxy
	}
	if raw == "" {
		return nil, nil
	}
	return url.Parse(raw)
}

// bypass reports whether host matches a NoProxy entry. An entry matches
// itself and its subdomains; "*" matches everything.
func (c ProxyConfig) bypass(hostport string) bool {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	for _, entry := range strings.Split(c.NoProxy, ",") {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if entry == "*" || host == entry || strings.HasSuffix(host, "."+strings.TrimPrefix(entry, ".")) {
			return true
		}
	}
	return false
}

// String describes the proxy setup for logs. Passwords are masked.
func (c ProxyConfig) String() string {
	if !c.HasProxy() {
		return "direct"
	}

	var b strings.Builder
	add := func(key, val string) {
		if val == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key + "=" + val)
	}
	add("socks5", redactUserinfo(c.SOCKS5Proxy))
	add("http", redactUserinfo(c.HTTPProxy))
	add("https", redactUserinfo(c.HTTPSProxy))
	add("no_proxy", c.NoProxy)
	return b.String()
}

// redactUserinfo replaces the password in a proxy URL with "****". The
// mask is spliced in by hand since url.URL would percent-encode it.
func redactUserinfo(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	if u.User == nil {
		return u.String()
	}
	if _, ok := u.User.Password(); !ok {
		return u.String()
	}

	name := u.User.Username()
	u.User = nil
	scheme := u.Scheme + "://"
	return scheme + name + ":****@" + strings.TrimPrefix(u.String(), scheme)
}
