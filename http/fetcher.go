// Package http provides the plain-HTTP implementation of adwatch.Fetcher
// and the proxy variants it sends requests through.
package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fwojciec/adwatch"
)

// Defaults used when the matching option is not given.
const (
	DefaultFetchTimeout   = 20 * time.Second
	DefaultMaxRetries     = 5
	DefaultRetryDelay     = 5 * time.Second
	DefaultBlockThreshold = 3
)

// Headers is the fixed browser-identifying header set sent with every
// request. It is never randomized.
var Headers = map[string]string{
	"sec-ch-ua-platform": `"Windows"`,
	"User-Agent":         "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/144.0.0.0 Safari/537.36",
	"sec-ch-ua":          `"Not(A:Brand";v="8", "Chromium";v="144", "Google Chrome";v="144"`,
	"sec-ch-ua-mobile":   "?0",
}

// Ensure Fetcher implements adwatch.Fetcher at compile time.
var _ adwatch.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves search pages over plain HTTP, retrying transport
// failures and rotating the proxy after repeated block responses.
//
// The block counter lives on the Fetcher and carries across calls until a
// non-block response or a rotation resets it. Fetcher is safe for
// concurrent use; counter updates and rotation share one lock.
type Fetcher struct {
	proxy          adwatch.Proxy
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
	blockThreshold int
	logger         *slog.Logger
	sleep          func(time.Duration)

	mu     sync.Mutex
	blocks int
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-attempt request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxRetries sets the number of attempts per fetch.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithRetryDelay sets the pause after every block and transport failure.
func WithRetryDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.retryDelay = d
	}
}

// WithBlockThreshold sets how many consecutive block responses trigger a
// proxy rotation.
func WithBlockThreshold(n int) Option {
	return func(f *Fetcher) {
		f.blockThreshold = n
	}
}

// WithProxy sets the upstream requests go through. Defaults to NoProxy.
func WithProxy(p adwatch.Proxy) Option {
	return func(f *Fetcher) {
		f.proxy = p
	}
}

// WithLogger sets the logger for retry and block warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSleep replaces the wall-clock sleep between attempts.
func WithSleep(sleep func(time.Duration)) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		proxy:          NoProxy{},
		timeout:        DefaultFetchTimeout,
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
		blockThreshold: DefaultBlockThreshold,
		logger:         slog.New(slog.DiscardHandler),
		sleep:          time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves the markup at url.
//
// Block responses (401, 403, 429) and transport errors are retried after
// the retry delay until the attempt budget runs out, which fails with
// *adwatch.FetchExhaustedError. Any other status >= 400 fails immediately
// with *adwatch.StatusError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	blocked := 0
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out := f.attempt(ctx, url)
		switch out.Kind {
		case adwatch.OutcomeSuccess:
			f.resetBlocks()
			return out.Markup, nil
		case adwatch.OutcomeHTTPError:
			return "", &adwatch.StatusError{URL: url, StatusCode: out.StatusCode}
		case adwatch.OutcomeBlocked:
			blocked++
			f.recordBlock(ctx, url, out.StatusCode)
		case adwatch.OutcomeNetworkFailure:
			lastErr = out.Err
			f.logger.Warn("request error", "url", url, "attempt", attempt, "err", out.Err)
		}
		f.sleep(f.retryDelay)
	}
	return "", &adwatch.FetchExhaustedError{
		URL:      url,
		Attempts: f.maxRetries,
		Blocks:   blocked,
		Err:      lastErr,
	}
}

// attempt issues one GET through a fresh client and classifies the result.
func (f *Fetcher) attempt(ctx context.Context, url string) adwatch.FetchOutcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return adwatch.FetchOutcome{Kind: adwatch.OutcomeNetworkFailure, Err: err}
	}
	for k, v := range Headers {
		req.Header.Set(k, v)
	}

	client := f.newClient()
	defer client.CloseIdleConnections()

	resp, err := client.Do(req)
	if err != nil {
		return adwatch.FetchOutcome{Kind: adwatch.OutcomeNetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	if adwatch.IsBlockStatus(resp.StatusCode) {
		_, _ = io.Copy(io.Discard, resp.Body)
		return adwatch.FetchOutcome{Kind: adwatch.OutcomeBlocked, StatusCode: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return adwatch.FetchOutcome{Kind: adwatch.OutcomeHTTPError, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return adwatch.FetchOutcome{Kind: adwatch.OutcomeNetworkFailure, Err: err}
	}
	return adwatch.FetchOutcome{Kind: adwatch.OutcomeSuccess, Markup: string(body), StatusCode: resp.StatusCode}
}

func (f *Fetcher) newClient() *http.Client {
	transport := &http.Transport{
		DisableKeepAlives: true,
		ForceAttemptHTTP2: false,
	}
	if u := f.proxy.URL(); u != nil {
		transport.Proxy = http.ProxyURL(u)
	}
	return &http.Client{
		Transport: transport,
		Timeout:   f.timeout,
	}
}

// recordBlock counts a block signal and rotates the proxy once the
// threshold is reached. Rotation runs under the lock so concurrent fetches
// cannot double-rotate.
func (f *Fetcher) recordBlock(ctx context.Context, url string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.blocks++
	f.logger.Warn("blocked request", "url", url, "status", status, "blocks", f.blocks)
	if f.blocks >= f.blockThreshold {
		f.logger.Warn("block threshold reached, rotating proxy", "threshold", f.blockThreshold)
		f.proxy.Rotate(ctx)
		f.blocks = 0
	}
}

func (f *Fetcher) resetBlocks() {
	f.mu.Lock()
	f.blocks = 0
	f.mu.Unlock()
}

// BlockCount returns the consecutive block responses seen since the last
// success or rotation.
func (f *Fetcher) BlockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks
}

// Close releases resources. Clients are per attempt so this is a no-op.
func (f *Fetcher) Close() error {
	return nil
}
