package adwatch

import "time"

// FetchMode selects how search pages are fetched.
type FetchMode string

// FetchMode constants.
const (
	FetchHTTP    FetchMode = "http"
	FetchBrowser FetchMode = "browser"
)

// Config holds the named settings the discovery pipeline reads.
type Config struct {
	// Fetching.
	Mode           FetchMode
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	BlockThreshold int
	ProxyString    string
	ProxyChangeURL string
	BrowserSettle  time.Duration
	MarkerWait     time.Duration

	// Discovery.
	Pages            int
	MaxAgeMinutes    int
	LimitPerTarget   int
	TargetPause      time.Duration
	TargetRetryPause time.Duration
	MessagePause     time.Duration
	RotateSettle     time.Duration
	Interval         time.Duration

	// Storage.
	DBPath    string
	LedgerDSN string

	// Delivery.
	TelegramToken string
	TelegramProxy string
}

// DefaultConfig returns the settings used when nothing overrides them.
func DefaultConfig() Config {
	return Config{
		Mode:             FetchHTTP,
		Timeout:          20 * time.Second,
		MaxRetries:       5,
		RetryDelay:       5 * time.Second,
		BlockThreshold:   3,
		BrowserSettle:    2 * time.Second,
		MarkerWait:       15 * time.Second,
		Pages:            1,
		MaxAgeMinutes:    60,
		LimitPerTarget:   20,
		TargetPause:      8 * time.Second,
		TargetRetryPause: 30 * time.Second,
		MessagePause:     3 * time.Second,
		RotateSettle:     5 * time.Second,
		Interval:         15 * time.Minute,
		DBPath:           "adwatch.db",
	}
}

// Validate returns an error if the config contains invalid values.
func (c *Config) Validate() error {
	if c.Mode != FetchHTTP && c.Mode != FetchBrowser {
		return Errorf(EINVALID, "unknown fetch mode %q", c.Mode)
	}
	if c.Timeout <= 0 {
		return Errorf(EINVALID, "timeout must be positive")
	}
	if c.MaxRetries < 1 {
		return Errorf(EINVALID, "max retries must be at least 1")
	}
	if c.BlockThreshold < 1 {
		return Errorf(EINVALID, "block threshold must be at least 1")
	}
	if c.Pages < 1 {
		return Errorf(EINVALID, "pages must be at least 1")
	}
	if c.MaxAgeMinutes < 0 {
		return Errorf(EINVALID, "max age must not be negative")
	}
	if c.Interval <= 0 {
		return Errorf(EINVALID, "interval must be positive")
	}
	return nil
}
