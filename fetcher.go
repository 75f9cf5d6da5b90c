package adwatch

import "context"

// Fetcher retrieves the markup of a marketplace search page.
// Implementations hide plain HTTP vs browser automation.
type Fetcher interface {
	// Fetch returns the page markup or fails with *StatusError,
	// *FetchExhaustedError, or an implementation-specific error.
	// The context controls timeout and cancellation.
	Fetch(ctx context.Context, url string) (markup string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}

// OutcomeKind classifies the result of a single page request.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeBlocked
	OutcomeNetworkFailure
	OutcomeHTTPError
)

// String returns a short name used in logs.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeNetworkFailure:
		return "network_failure"
	case OutcomeHTTPError:
		return "http_error"
	default:
		return "unknown"
	}
}

// FetchOutcome is the tagged result of one request attempt.
// A blocked or failed attempt never carries markup.
type FetchOutcome struct {
	Kind       OutcomeKind
	Markup     string
	StatusCode int
	Err        error
}

// IsBlockStatus reports whether an HTTP status is an anti-scraping rejection.
// 401, 403 and 429 are treated identically.
func IsBlockStatus(code int) bool {
	switch code {
	case 401, 403, 429:
		return true
	}
	return false
}
