package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/discovery"
	"github.com/fwojciec/adwatch/goquery"
	adhttp "github.com/fwojciec/adwatch/http"
	"github.com/fwojciec/adwatch/ini"
	"github.com/fwojciec/adwatch/postgres"
	"github.com/fwojciec/adwatch/rod"
	adslog "github.com/fwojciec/adwatch/slog"
	"github.com/fwojciec/adwatch/sqlite"
	"github.com/fwojciec/adwatch/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Getenv reads configuration overrides. Set before calling Run().
	Getenv func(string) string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	// Services for end-to-end testing.
	SubscriberService adwatch.SubscriberService
	TargetService     adwatch.TargetService
	RunService        adwatch.RunService

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		Getenv: os.Getenv,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var first error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	m.closers = nil
	if m.DB != nil {
		if err := m.DB.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("adwatch"),
		kong.Description("Watch marketplace search results and send new ads to subscribers."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'adwatch --help' to see available commands")
	}

	if cmd := args[0]; cmd == "help" || cmd == "--help" || cmd == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cfg, err := ini.Load(cli.Config, m.Getenv)
	if err != nil {
		return fmt.Errorf("failed to load config %q: %w", cli.Config, err)
	}
	logger := newLogger(stderr, cli.LogLevel)
	deps.Config = cfg
	deps.Logger = logger

	m.DB = sqlite.NewDB(cfg.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set %s or [run] db_path to use a different database path\n", ini.EnvDB)
		return fmt.Errorf("failed to open database at %q: %w", cfg.DBPath, err)
	}
	defer m.Close()

	m.SubscriberService = sqlite.NewSubscriberService(m.DB)
	m.TargetService = sqlite.NewTargetService(m.DB)
	m.RunService = sqlite.NewRunService(m.DB)
	deps.Subscribers = m.SubscriberService
	deps.Targets = m.TargetService
	deps.Runs = m.RunService

	switch strings.Fields(kongCtx.Command())[0] {
	case "search":
		fetcher, _ := m.newFetcher(cfg, logger)
		deps.Searcher = newSearcher(fetcher, logger)
	case "probe":
		deps.Probes = m.newProbes(cfg, logger)
		deps.Extractor = goquery.NewStateExtractor()
	case "run", "serve":
		runner, err := m.newOrchestrator(ctx, cfg, logger)
		if err != nil {
			return err
		}
		deps.Runner = runner
	}

	return kongCtx.Run(deps)
}

// newFetcher returns the fetcher for the configured mode and, when the
// upstream can change its IP, the proxy the orchestrator rotates before
// each run. Browser mode never rotates up front.
func (m *Main) newFetcher(cfg adwatch.Config, logger *slog.Logger) (adwatch.Fetcher, adwatch.Proxy) {
	var fetcher adwatch.Fetcher
	var rotating adwatch.Proxy
	if cfg.Mode == adwatch.FetchBrowser {
		fetcher = newBrowserFetcher(cfg, logger)
	} else {
		proxy := adhttp.NewProxy(cfg.ProxyString, cfg.ProxyChangeURL, logger)
		if rp, ok := proxy.(*adhttp.RotatingProxy); ok {
			rotating = rp
		}
		fetcher = adhttp.NewFetcher(
			adhttp.WithTimeout(cfg.Timeout),
			adhttp.WithMaxRetries(cfg.MaxRetries),
			adhttp.WithRetryDelay(cfg.RetryDelay),
			adhttp.WithBlockThreshold(cfg.BlockThreshold),
			adhttp.WithProxy(proxy),
			adhttp.WithLogger(logger),
		)
	}
	fetcher = adslog.NewLoggingFetcher(fetcher, logger)
	m.closers = append(m.closers, fetcher)
	return fetcher, rotating
}

func newBrowserFetcher(cfg adwatch.Config, logger *slog.Logger) *rod.Fetcher {
	opts := []rod.Option{
		rod.WithLogger(logger),
		rod.WithTimeout(cfg.Timeout),
		rod.WithMarkerWait(cfg.MarkerWait),
		rod.WithSettle(cfg.BrowserSettle),
		rod.WithProxyString(cfg.ProxyString),
	}
	if cfg.ProxyChangeURL != "" {
		opts = append(opts, rod.WithRotatingProxy(rod.DefaultMinJitter, rod.DefaultMaxJitter))
	}
	return rod.NewFetcher(opts...)
}

// newProbes returns one probe per fetch strategy. The HTTP probe makes a
// single attempt so a blocked page shows up as blocked instead of being
// retried away.
func (m *Main) newProbes(cfg adwatch.Config, logger *slog.Logger) []Probe {
	proxy := adhttp.NewProxy(cfg.ProxyString, cfg.ProxyChangeURL, logger)
	httpFetcher := adhttp.NewFetcher(
		adhttp.WithTimeout(cfg.Timeout),
		adhttp.WithMaxRetries(1),
		adhttp.WithProxy(proxy),
		adhttp.WithLogger(logger),
	)
	browser := newBrowserFetcher(cfg, logger)
	m.closers = append(m.closers, httpFetcher, browser)

	return []Probe{
		{
			Name: "http",
			Fetch: func(ctx context.Context, rawURL string) (string, bool) {
				markup, err := httpFetcher.Fetch(ctx, rawURL)
				if err != nil {
					logger.Warn("http fetch failed", "url", rawURL, "err", err)
					return "", false
				}
				return markup, true
			},
		},
		{Name: "browser", Fetch: browser.FetchSafe},
	}
}

func (m *Main) newOrchestrator(ctx context.Context, cfg adwatch.Config, logger *slog.Logger) (*discovery.Orchestrator, error) {
	if cfg.TelegramToken == "" {
		return nil, adwatch.Errorf(adwatch.EINVALID,
			"telegram bot token not set. Set [bot] token in the config or %s", ini.EnvBotToken)
	}
	notifierOpts := []telegram.Option{}
	if cfg.TelegramProxy != "" {
		u, err := url.Parse(cfg.TelegramProxy)
		if err != nil || u.Host == "" {
			return nil, adwatch.Errorf(adwatch.EINVALID, "invalid telegram proxy %q", cfg.TelegramProxy)
		}
		notifierOpts = append(notifierOpts, telegram.WithProxy(u))
	}

	var ledger adwatch.SeenAdLedger = sqlite.NewSeenAdLedger(m.DB)
	if cfg.LedgerDSN != "" {
		pg, err := postgres.Open(ctx, cfg.LedgerDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open shared ledger: %w", err)
		}
		m.closers = append(m.closers, pg)
		ledger = pg
	}

	fetcher, proxy := m.newFetcher(cfg, logger)
	return &discovery.Orchestrator{
		Searcher:    newSearcher(fetcher, logger),
		Subscribers: m.SubscriberService,
		Targets:     m.TargetService,
		Ledger:      adslog.NewLoggingLedger(ledger, logger),
		Notifier:    adslog.NewLoggingNotifier(telegram.NewNotifier(cfg.TelegramToken, notifierOpts...), logger),
		Runs:        m.RunService,
		Proxy:       proxy,
		Settings:    settings(cfg),
		Logger:      logger,
	}, nil
}

func newSearcher(fetcher adwatch.Fetcher, logger *slog.Logger) *discovery.Searcher {
	return &discovery.Searcher{
		Fetcher:   fetcher,
		Extractor: goquery.NewStateExtractor(),
		Logger:    logger,
	}
}

// settings maps configuration onto run pacing. A zero freshness window
// disables the age filter.
func settings(cfg adwatch.Config) discovery.Settings {
	s := discovery.Settings{
		Pages:            cfg.Pages,
		LimitPerTarget:   cfg.LimitPerTarget,
		TargetPause:      cfg.TargetPause,
		TargetRetryPause: cfg.TargetRetryPause,
		MessagePause:     cfg.MessagePause,
		RotateSettle:     cfg.RotateSettle,
	}
	if cfg.MaxAgeMinutes > 0 {
		maxAge := cfg.MaxAgeMinutes
		s.MaxAgeMinutes = &maxAge
	}
	return s
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
