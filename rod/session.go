package rod

import (
	"context"
	"fmt"

	"github.com/fwojciec/adwatch"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// session is one isolated browser process. Nothing survives close: the
// profile directory is removed with the process.
type session struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
}

// launchSession starts a headless browser with the sandbox and shared
// memory flags containers need, routed through proxy when set.
func launchSession(ctx context.Context, bin string, proxy *adwatch.ProxyAddr) (*session, error) {
	lnchr := launcher.New().
		Context(ctx).
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-dev-shm-usage").
		Leakless(true).
		Headless(true)
	if bin != "" {
		lnchr = lnchr.Bin(bin)
	}
	if proxy != nil {
		lnchr = lnchr.Proxy(proxy.Server())
	}

	u, err := lnchr.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		lnchr.Kill()
		lnchr.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	if proxy != nil && proxy.Username != "" {
		wait := browser.HandleAuth(proxy.Username, proxy.Password)
		go func() { _ = wait() }()
	}

	return &session{browser: browser, launcher: lnchr}, nil
}

// close shuts the browser down, kills the process and removes its
// profile directory.
func (s *session) close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.launcher.Cleanup()
	return err
}

// pid returns the browser process ID.
func (s *session) pid() int {
	return s.launcher.PID()
}
