// Package ini loads adwatch configuration from an INI file using
// gopkg.in/ini.v1.
package ini

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/adwatch"
	"gopkg.in/ini.v1"
)

// Environment variables consulted after the file is read.
const (
	EnvDB        = "ADWATCH_DB"
	EnvLedgerDSN = "ADWATCH_LEDGER_DSN"
	EnvBotToken  = "TELEGRAM_BOT_TOKEN"
)

type avitoSection struct {
	ProxyString    string        `ini:"proxy_string"`
	ProxyChangeURL string        `ini:"proxy_change_url"`
	UsePlaywright  bool          `ini:"use_playwright"`
	Mode           string        `ini:"mode"`
	Timeout        time.Duration `ini:"timeout"`
	MaxRetries     int           `ini:"max_retries"`
	RetryDelay     time.Duration `ini:"retry_delay"`
	BlockThreshold int           `ini:"block_threshold"`
	BrowserSettle  time.Duration `ini:"browser_settle"`
	MarkerWait     time.Duration `ini:"marker_wait"`
	TgToken        string        `ini:"tg_token"`
}

type botSection struct {
	Token         string `ini:"token"`
	TelegramProxy string `ini:"telegram_proxy"`
}

type runSection struct {
	Pages            int           `ini:"pages"`
	MaxAgeMinutes    int           `ini:"max_age_minutes"`
	LimitPerTarget   int           `ini:"limit_per_target"`
	TargetPause      time.Duration `ini:"target_pause"`
	TargetRetryPause time.Duration `ini:"target_retry_pause"`
	MessagePause     time.Duration `ini:"message_pause"`
	RotateSettle     time.Duration `ini:"rotate_settle"`
	Interval         time.Duration `ini:"interval"`
	DBPath           string        `ini:"db_path"`
	LedgerDSN        string        `ini:"ledger_dsn"`
}

type file struct {
	Avito avitoSection `ini:"avito"`
	Bot   botSection   `ini:"bot"`
	Run   runSection   `ini:"run"`
}

// Load reads the configuration at path over the defaults, then applies
// environment overrides read through getenv. A missing file is not an
// error. The result is validated.
func Load(path string, getenv func(string) string) (adwatch.Config, error) {
	f := fromConfig(adwatch.DefaultConfig())

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			src, err := ini.Load(path)
			if err != nil {
				return adwatch.Config{}, adwatch.Errorf(adwatch.EINVALID, "reading config %s: %v", path, err)
			}
			if err := src.MapTo(&f); err != nil {
				return adwatch.Config{}, adwatch.Errorf(adwatch.EINVALID, "parsing config %s: %v", path, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return adwatch.Config{}, err
		}
	}

	cfg := f.config()
	if getenv != nil {
		applyEnv(&cfg, getenv)
	}
	if err := cfg.Validate(); err != nil {
		return adwatch.Config{}, err
	}
	return cfg, nil
}

func fromConfig(c adwatch.Config) file {
	return file{
		Avito: avitoSection{
			ProxyString:    c.ProxyString,
			ProxyChangeURL: c.ProxyChangeURL,
			Mode:           string(c.Mode),
			Timeout:        c.Timeout,
			MaxRetries:     c.MaxRetries,
			RetryDelay:     c.RetryDelay,
			BlockThreshold: c.BlockThreshold,
			BrowserSettle:  c.BrowserSettle,
			MarkerWait:     c.MarkerWait,
		},
		Bot: botSection{
			Token:         c.TelegramToken,
			TelegramProxy: c.TelegramProxy,
		},
		Run: runSection{
			Pages:            c.Pages,
			MaxAgeMinutes:    c.MaxAgeMinutes,
			LimitPerTarget:   c.LimitPerTarget,
			TargetPause:      c.TargetPause,
			TargetRetryPause: c.TargetRetryPause,
			MessagePause:     c.MessagePause,
			RotateSettle:     c.RotateSettle,
			Interval:         c.Interval,
			DBPath:           c.DBPath,
			LedgerDSN:        c.LedgerDSN,
		},
	}
}

func (f file) config() adwatch.Config {
	mode := adwatch.FetchMode(strings.ToLower(strings.TrimSpace(f.Avito.Mode)))
	if f.Avito.UsePlaywright {
		mode = adwatch.FetchBrowser
	}
	token := f.Bot.Token
	if token == "" {
		token = f.Avito.TgToken
	}
	return adwatch.Config{
		Mode:             mode,
		Timeout:          f.Avito.Timeout,
		MaxRetries:       f.Avito.MaxRetries,
		RetryDelay:       f.Avito.RetryDelay,
		BlockThreshold:   f.Avito.BlockThreshold,
		ProxyString:      strings.TrimSpace(f.Avito.ProxyString),
		ProxyChangeURL:   strings.TrimSpace(f.Avito.ProxyChangeURL),
		BrowserSettle:    f.Avito.BrowserSettle,
		MarkerWait:       f.Avito.MarkerWait,
		Pages:            f.Run.Pages,
		MaxAgeMinutes:    f.Run.MaxAgeMinutes,
		LimitPerTarget:   f.Run.LimitPerTarget,
		TargetPause:      f.Run.TargetPause,
		TargetRetryPause: f.Run.TargetRetryPause,
		MessagePause:     f.Run.MessagePause,
		RotateSettle:     f.Run.RotateSettle,
		Interval:         f.Run.Interval,
		DBPath:           f.Run.DBPath,
		LedgerDSN:        f.Run.LedgerDSN,
		TelegramToken:    strings.TrimSpace(token),
		TelegramProxy:    strings.TrimSpace(f.Bot.TelegramProxy),
	}
}

func applyEnv(cfg *adwatch.Config, getenv func(string) string) {
	if v := getenv(EnvDB); v != "" {
		cfg.DBPath = v
	}
	if v := getenv(EnvLedgerDSN); v != "" {
		cfg.LedgerDSN = v
	}
	if cfg.TelegramToken == "" {
		cfg.TelegramToken = strings.TrimSpace(getenv(EnvBotToken))
	}
}
