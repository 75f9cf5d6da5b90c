package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/adwatch"
	"golang.org/x/sync/singleflight"
)

// DefaultRotateTimeout bounds the call to a rotation endpoint.
const DefaultRotateTimeout = 10 * time.Second

var (
	_ adwatch.Proxy = NoProxy{}
	_ adwatch.Proxy = (*StaticProxy)(nil)
	_ adwatch.Proxy = (*RotatingProxy)(nil)
)

// NoProxy sends requests directly. Rotation is a no-op.
type NoProxy struct{}

// URL returns nil.
func (NoProxy) URL() *url.URL { return nil }

// Rotate does nothing.
func (NoProxy) Rotate(context.Context) {}

// StaticProxy sends requests through a fixed upstream with no rotation
// endpoint. Rotation is a no-op.
type StaticProxy struct {
	addr adwatch.ProxyAddr
}

// NewStaticProxy creates a StaticProxy for the parsed address.
func NewStaticProxy(addr adwatch.ProxyAddr) *StaticProxy {
	return &StaticProxy{addr: addr}
}

// URL returns the upstream address.
func (p *StaticProxy) URL() *url.URL { return p.addr.URL() }

// Rotate does nothing.
func (p *StaticProxy) Rotate(context.Context) {}

// RotatingProxy is an upstream whose egress IP changes when its rotation
// endpoint is called, such as a mobile proxy.
type RotatingProxy struct {
	addr      adwatch.ProxyAddr
	changeURL string
	client    *http.Client
	logger    *slog.Logger
	group     singleflight.Group
}

// RotatingProxyOption configures a RotatingProxy.
type RotatingProxyOption func(*RotatingProxy)

// WithRotateTimeout bounds the rotation call.
// Defaults to DefaultRotateTimeout (10s) if not specified.
func WithRotateTimeout(d time.Duration) RotatingProxyOption {
	return func(p *RotatingProxy) {
		p.client.Timeout = d
	}
}

// WithRotateLogger sets the logger that receives rotation failures.
func WithRotateLogger(logger *slog.Logger) RotatingProxyOption {
	return func(p *RotatingProxy) {
		p.logger = logger
	}
}

// NewRotatingProxy creates a RotatingProxy that calls changeURL to rotate.
func NewRotatingProxy(addr adwatch.ProxyAddr, changeURL string, opts ...RotatingProxyOption) *RotatingProxy {
	p := &RotatingProxy{
		addr:      addr,
		changeURL: changeURL,
		client:    &http.Client{Timeout: DefaultRotateTimeout},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// URL returns the upstream address.
func (p *RotatingProxy) URL() *url.URL { return p.addr.URL() }

// Rotate calls the rotation endpoint. Failures are logged and swallowed;
// the proxy keeps its address either way. Concurrent callers share one
// rotation call.
func (p *RotatingProxy) Rotate(ctx context.Context) {
	_, _, _ = p.group.Do("rotate", func() (any, error) {
		err := p.rotate(ctx)
		if err != nil {
			p.logger.Warn("proxy rotation failed", "err", err)
		} else {
			p.logger.Info("proxy rotated")
		}
		return nil, nil
	})
}

func (p *RotatingProxy) rotate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, p.changeURL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("rotation endpoint returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// NewProxy selects the proxy variant for the configured values: no proxy
// string means NoProxy, no rotation URL means StaticProxy, otherwise
// RotatingProxy. A malformed proxy string degrades to NoProxy with a
// warning.
func NewProxy(proxyString, changeURL string, logger *slog.Logger) adwatch.Proxy {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	addr, ok, err := adwatch.ParseProxyString(proxyString)
	if err != nil {
		logger.Warn("ignoring malformed proxy string", "err", err)
		return NoProxy{}
	}
	if !ok {
		return NoProxy{}
	}
	if changeURL == "" {
		return NewStaticProxy(addr)
	}
	return NewRotatingProxy(addr, changeURL, WithRotateLogger(logger))
}
