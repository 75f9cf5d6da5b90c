package ini_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/adwatch"
	"github.com/fwojciec/adwatch/ini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "adwatch.ini")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("missing file yields defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := ini.Load(filepath.Join(t.TempDir(), "absent.ini"), env(nil))

		require.NoError(t, err)
		assert.Equal(t, adwatch.DefaultConfig(), cfg)
	})

	t.Run("empty path yields defaults", func(t *testing.T) {
		t.Parallel()

		cfg, err := ini.Load("", nil)

		require.NoError(t, err)
		assert.Equal(t, adwatch.DefaultConfig(), cfg)
	})

	t.Run("file overrides only the keys it sets", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
[avito]
proxy_string = user:pw@10.0.0.1:8000
proxy_change_url = https://mobileproxy.example/change?key=k
timeout = 45s
block_threshold = 2

[bot]
token = 123:abc
telegram_proxy = socks5://127.0.0.1:1080

[run]
pages = 3
max_age_minutes = 30
interval = 10m
db_path = /var/lib/adwatch/adwatch.db
`)

		cfg, err := ini.Load(path, env(nil))

		require.NoError(t, err)
		assert.Equal(t, "user:pw@10.0.0.1:8000", cfg.ProxyString)
		assert.Equal(t, "https://mobileproxy.example/change?key=k", cfg.ProxyChangeURL)
		assert.Equal(t, 45*time.Second, cfg.Timeout)
		assert.Equal(t, 2, cfg.BlockThreshold)
		assert.Equal(t, 5, cfg.MaxRetries)
		assert.Equal(t, 5*time.Second, cfg.RetryDelay)
		assert.Equal(t, "123:abc", cfg.TelegramToken)
		assert.Equal(t, "socks5://127.0.0.1:1080", cfg.TelegramProxy)
		assert.Equal(t, 3, cfg.Pages)
		assert.Equal(t, 30, cfg.MaxAgeMinutes)
		assert.Equal(t, 10*time.Minute, cfg.Interval)
		assert.Equal(t, "/var/lib/adwatch/adwatch.db", cfg.DBPath)
		assert.Equal(t, adwatch.FetchHTTP, cfg.Mode)
	})

	t.Run("use_playwright selects browser mode", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "[avito]\nuse_playwright = true\n")

		cfg, err := ini.Load(path, env(nil))

		require.NoError(t, err)
		assert.Equal(t, adwatch.FetchBrowser, cfg.Mode)
	})

	t.Run("token falls back to avito section then environment", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "[avito]\ntg_token = from-avito\n")
		cfg, err := ini.Load(path, env(map[string]string{ini.EnvBotToken: "from-env"}))
		require.NoError(t, err)
		assert.Equal(t, "from-avito", cfg.TelegramToken)

		path = writeConfig(t, "[run]\npages = 1\n")
		cfg, err = ini.Load(path, env(map[string]string{ini.EnvBotToken: "from-env"}))
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.TelegramToken)
	})

	t.Run("environment overrides storage", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "[run]\ndb_path = file.db\nledger_dsn = postgres://file\n")

		cfg, err := ini.Load(path, env(map[string]string{
			ini.EnvDB:        "env.db",
			ini.EnvLedgerDSN: "postgres://env",
		}))

		require.NoError(t, err)
		assert.Equal(t, "env.db", cfg.DBPath)
		assert.Equal(t, "postgres://env", cfg.LedgerDSN)
	})

	t.Run("invalid values are rejected", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "[avito]\nmode = carrier-pigeon\n")

		_, err := ini.Load(path, env(nil))

		require.Error(t, err)
		assert.Equal(t, adwatch.EINVALID, adwatch.ErrorCode(err))
	})

	t.Run("unparsable file is rejected", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "[avito\nproxy_string = x\n")

		_, err := ini.Load(path, env(nil))

		require.Error(t, err)
		assert.Equal(t, adwatch.EINVALID, adwatch.ErrorCode(err))
	})
}
