// Package rod fetches search pages with a headless Chrome driven by
// github.com/go-rod/rod.
package rod

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/goquery"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Defaults used when the matching option is not given.
const (
	DefaultTimeout    = 30 * time.Second
	DefaultMarkerWait = 15 * time.Second
	DefaultSettle     = 2 * time.Second
	DefaultMinJitter  = 2 * time.Second
	DefaultMaxJitter  = 6 * time.Second
)

// Browser identity applied to every session.
const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
	Locale         = "ru-RU"
	ViewportWidth  = 1920
	ViewportHeight = 1080
)

// webdriverJS hides navigator.webdriver, which the site checks directly.
const webdriverJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
}`

// Ensure Fetcher implements adwatch.Fetcher at compile time.
var _ adwatch.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves rendered search pages using Chrome browser automation.
// Every call launches its own browser and tears it down before returning,
// so no cookies or cache leak between calls. Fetcher is safe for
// concurrent use by multiple goroutines.
type Fetcher struct {
	bin        string
	proxy      *adwatch.ProxyAddr
	timeout    time.Duration
	markerWait time.Duration
	settle     time.Duration
	minJitter  time.Duration
	maxJitter  time.Duration
	jitter     bool
	logger     *slog.Logger
	sleep      func(time.Duration)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout bounds navigation and page load.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMarkerWait caps the soft wait for the state script. The effective
// wait is the smaller of this and half the timeout.
func WithMarkerWait(d time.Duration) Option {
	return func(f *Fetcher) {
		f.markerWait = d
	}
}

// WithSettle sets the pause between the marker wait and the snapshot.
func WithSettle(d time.Duration) Option {
	return func(f *Fetcher) {
		f.settle = d
	}
}

// WithProxyString routes the browser through a compact
// "user:password@host:port" or "host:port" proxy. A malformed string is
// logged when the fetcher is created and the browser goes direct.
func WithProxyString(s string) Option {
	return func(f *Fetcher) {
		addr, ok, err := adwatch.ParseProxyString(s)
		if err != nil {
			f.logger.Warn("ignoring malformed proxy string", "err", err)
			return
		}
		if ok {
			f.proxy = &addr
		}
	}
}

// WithRotatingProxy enables a random pre-request delay in [lo, hi) so
// requests through a rotating upstream do not arrive in bursts.
func WithRotatingProxy(lo, hi time.Duration) Option {
	return func(f *Fetcher) {
		f.jitter = true
		f.minJitter = lo
		f.maxJitter = hi
	}
}

// WithBin sets the Chrome binary. By default rod finds or downloads one.
func WithBin(path string) Option {
	return func(f *Fetcher) {
		f.bin = path
	}
}

// WithLogger sets the logger for FetchSafe failures and session events.
// Pass it before WithProxyString to capture proxy parse warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithSleep replaces the wall-clock sleep used for the pre-request delay
// and the settle pause.
func WithSleep(sleep func(time.Duration)) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

// NewFetcher creates a new Fetcher. No browser is started until Fetch.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:    DefaultTimeout,
		markerWait: DefaultMarkerWait,
		settle:     DefaultSettle,
		minJitter:  DefaultMinJitter,
		maxJitter:  DefaultMaxJitter,
		logger:     slog.New(slog.DiscardHandler),
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch launches a browser, loads url and returns the rendered markup.
// The browser is closed whether or not the page loaded.
func (f *Fetcher) Fetch(ctx context.Context, url string) (markup string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if f.jitter {
		f.sleep(f.preRequestDelay())
	}

	s, err := launchSession(ctx, f.bin, f.proxy)
	if err != nil {
		return "", err
	}
	f.logger.Debug("browser launched", "pid", s.pid(), "url", url)
	defer func() {
		if cerr := s.close(); cerr != nil {
			f.logger.Debug("closing browser", "pid", s.pid(), "err", cerr)
		}
	}()

	page, err := stealth.Page(s.browser)
	if err != nil {
		return "", fmt.Errorf("opening page: %w", err)
	}
	if _, err := page.EvalOnNewDocument(webdriverJS); err != nil {
		return "", fmt.Errorf("patching webdriver flag: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  ViewportWidth,
		Height: ViewportHeight,
	}); err != nil {
		return "", fmt.Errorf("setting viewport: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      UserAgent,
		AcceptLanguage: Locale,
	}); err != nil {
		return "", fmt.Errorf("setting user agent: %w", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: Locale}).Call(page); err != nil {
		return "", fmt.Errorf("setting locale: %w", err)
	}

	loadCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	loading := page.Context(loadCtx)
	if err := loading.Navigate(url); err != nil {
		return "", fmt.Errorf("navigating: %w", err)
	}
	if err := loading.WaitLoad(); err != nil {
		return "", fmt.Errorf("waiting for load: %w", err)
	}

	// The marker is optional; challenge pages never carry it.
	if _, err := page.Timeout(f.markerBudget()).Element(goquery.StateScriptSelector); err != nil {
		f.logger.Debug("state script not found", "url", url, "wait", f.markerBudget())
	}
	f.sleep(f.settle)

	markup, err = page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("reading markup: %w", err)
	}
	return markup, nil
}

// FetchSafe is Fetch for callers that prefer an empty page over an error.
// Failures are logged and reported as ok=false.
func (f *Fetcher) FetchSafe(ctx context.Context, url string) (markup string, ok bool) {
	markup, err := f.Fetch(ctx, url)
	if err != nil {
		f.logger.Warn("browser fetch failed", "url", truncate(url, 80), "err", err)
		return "", false
	}
	return markup, true
}

// Close is a no-op; sessions never outlive Fetch.
func (f *Fetcher) Close() error {
	return nil
}

func (f *Fetcher) markerBudget() time.Duration {
	return min(f.markerWait, f.timeout/2)
}

func (f *Fetcher) preRequestDelay() time.Duration {
	span := f.maxJitter - f.minJitter
	if span <= 0 {
		return f.minJitter
	}
	return f.minJitter + rand.N(span)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
