package adwatch

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// Proxy is the upstream a fetcher sends requests through.
type Proxy interface {
	// URL returns the proxy to dial, or nil when requests go direct.
	URL() *url.URL

	// Rotate asks the upstream for a new egress IP.
	// It never fails; implementations log problems and keep the old address.
	Rotate(ctx context.Context)
}

// ProxyAddr is a parsed compact proxy string.
type ProxyAddr struct {
	HostPort string
	Username string
	Password string
}

// ParseProxyString parses "user:password@host:port" or "host:port".
// Whitespace-only input yields ok=false with no error.
func ParseProxyString(s string) (addr ProxyAddr, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ProxyAddr{}, false, nil
	}

	hostPort := s
	if i := strings.LastIndex(s, "@"); i >= 0 {
		creds := s[:i]
		hostPort = s[i+1:]
		if user, pass, found := strings.Cut(creds, ":"); found {
			addr.Username = user
			addr.Password = pass
		}
	}

	host, port, splitErr := net.SplitHostPort(hostPort)
	if splitErr != nil {
		return ProxyAddr{}, false, Errorf(EINVALID, "invalid proxy address %q: %v", hostPort, splitErr)
	}
	if host == "" {
		return ProxyAddr{}, false, Errorf(EINVALID, "proxy host required")
	}
	if n, convErr := strconv.Atoi(port); convErr != nil || n <= 0 || n > 65535 {
		return ProxyAddr{}, false, Errorf(EINVALID, "invalid proxy port %q", port)
	}

	addr.HostPort = hostPort
	return addr, true, nil
}

// Server returns the proxy server in the form browsers expect.
func (a ProxyAddr) Server() string {
	return "http://" + a.HostPort
}

// URL returns the proxy as an http URL carrying credentials, if any.
func (a ProxyAddr) URL() *url.URL {
	u := &url.URL{Scheme: "http", Host: a.HostPort}
	if a.Username != "" {
		u.User = url.UserPassword(a.Username, a.Password)
	}
	return u
}
