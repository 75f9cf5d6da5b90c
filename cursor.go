package adwatch

import (
	"net/url"
	"strconv"
	"strings"
)

// PageParam is the query parameter carrying the search page number.
const PageParam = "p"

// NextPage returns the search URL for the page after the one rawURL points at.
// A missing or unparsable page number counts as page 1. Every other query
// parameter is kept byte-for-byte in its original position; a missing page
// parameter is appended at the end and duplicate page parameters collapse
// into the first one.
func NextPage(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", Errorf(EINVALID, "invalid search URL: %v", err)
	}

	var parts []string
	if u.RawQuery != "" {
		parts = strings.Split(u.RawQuery, "&")
	}

	page := PageNumber(rawURL)
	out := make([]string, 0, len(parts)+1)
	pageIdx := -1
	for _, part := range parts {
		if !isPageParam(part) {
			out = append(out, part)
			continue
		}
		if pageIdx < 0 {
			pageIdx = len(out)
			out = append(out, "")
		}
	}

	next := PageParam + "=" + strconv.Itoa(page+1)
	if pageIdx >= 0 {
		out[pageIdx] = next
	} else {
		out = append(out, next)
	}

	u.RawQuery = strings.Join(out, "&")
	return u.String(), nil
}

// PageNumber returns the page number encoded in rawURL, defaulting to 1.
func PageNumber(rawURL string) int {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 1
	}
	for _, part := range strings.Split(u.RawQuery, "&") {
		if !isPageParam(part) {
			continue
		}
		_, value, _ := strings.Cut(part, "=")
		v, err := url.QueryUnescape(value)
		if err != nil {
			return 1
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 1
		}
		return n
	}
	return 1
}

func isPageParam(part string) bool {
	key, _, _ := strings.Cut(part, "=")
	k, err := url.QueryUnescape(key)
	if err != nil {
		return false
	}
	return k == PageParam
}
