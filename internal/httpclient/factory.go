// Package httpclient builds the process-wide *http.Client pool described
// in spec.md §5's "shared-resource policy": one client for direct
// upstream calls, plus one pooled client per distinct outbound-proxy
// URL a channel configures. Grounded on the teacher's
// internal/common/httpclient/factory.go.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/proxy"

	"chatproxy/internal/channel"
	"chatproxy/internal/config"
)

// Factory lazily builds and caches one *http.Client per proxy
// configuration, keyed by its canonical URL string; "" is the direct
// (no-proxy) client.
type Factory struct {
	cfg config.HTTPClientConfig
	tmo config.TimeoutsConfig

	mu      sync.Mutex
	clients map[string]*http.Client
}

func NewFactory(cfg config.HTTPClientConfig, tmo config.TimeoutsConfig) *Factory {
	return &Factory{cfg: cfg, tmo: tmo, clients: make(map[string]*http.Client)}
}

// ClientFor returns the shared client for proxy, building and caching
// it on first use. An unconfigured proxy (channel.ProxyConfig{}) yields
// the shared direct client.
func (f *Factory) ClientFor(p channel.ProxyConfig) (*http.Client, error) {
	key := proxyKey(p)

	f.mu.Lock()
	if c, ok := f.clients[key]; ok {
		f.mu.Unlock()
		return c, nil
	}
	f.mu.Unlock()

	c, err := f.build(p)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.clients[key] = c
	f.mu.Unlock()
	return c, nil
}

func proxyKey(p channel.ProxyConfig) string {
	if !p.Enabled() {
		return ""
	}
	return fmt.Sprintf("%s://%s:%d", p.Kind, p.Host, p.Port)
}

func (f *Factory) build(p channel.ProxyConfig) (*http.Client, error) {
	transport := &http.Transport{
		MaxIdleConns:          f.cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   f.cfg.MaxIdlePerHost,
		MaxConnsPerHost:       f.cfg.MaxConnsPerHost,
		TLSHandshakeTimeout:   time.Duration(f.tmo.TLSHandshakeSeconds) * time.Second,
		ResponseHeaderTimeout: time.Duration(f.tmo.ResponseHeaderSeconds) * time.Second,
		IdleConnTimeout:       time.Duration(f.tmo.IdleConnSeconds) * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}

	if p.Enabled() {
		switch p.Kind {
		case channel.ProxyHTTP, channel.ProxyHTTPS:
			proxyURL, err := buildProxyURL(p)
			if err != nil {
				return nil, err
			}
			transport.Proxy = http.ProxyURL(proxyURL)
		case channel.ProxySOCKS5:
			dialer, err := buildSOCKS5Dialer(p)
			if err != nil {
				return nil, err
			}
			transport.DialContext = nil
			transport.Dial = dialer.Dial
		}
	}

	return &http.Client{Transport: transport}, nil
}

func buildProxyURL(p channel.ProxyConfig) (*url.URL, error) {
	u := &url.URL{Scheme: string(p.Kind), Host: fmt.Sprintf("%s:%d", p.Host, p.Port)}
	if p.User != "" {
		u.User = url.UserPassword(p.User, p.Password)
	}
	return u, nil
}

func buildSOCKS5Dialer(p channel.ProxyConfig) (proxy.Dialer, error) {
	var auth *proxy.Auth
	if p.User != "" {
		auth = &proxy.Auth{User: p.User, Password: p.Password}
	}
	addr := fmt.Sprintf("%s:%d", p.Host, p.Port)
	dialer, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("build socks5 dialer: %w", err)
	}
	return dialer, nil
}
