// Package origin normalizes browser Origin headers and decides whether a
// WebSocket upgrade from that origin is allowed.
package origin

import (
	"net"
	"net/url"
	"strings"
)

// Normalize validates a browser Origin header and returns it in canonical
// scheme://host[:port] form, with default ports stripped.
func Normalize(originHeader string) (string, bool) {
	trimmed := strings.TrimSpace(originHeader)
	if trimmed == "" || trimmed == "null" {
		return "", false
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" || (u.Path != "" && u.Path != "/") {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Host)
	if h, p, err := net.SplitHostPort(host); err == nil {
		if (scheme == "http" && p == "80") || (scheme == "https" && p == "443") {
			host = h
		}
	}

	return scheme + "://" + host, true
}

// Allowed reports whether origin may open a session against requestHost.
//
// An empty allowlist permits only same-host requests; the single entry "*"
// permits everything.
func Allowed(origin, requestHost string, allowlist []string) bool {
	normalized, ok := Normalize(origin)
	if !ok {
		return false
	}

	if len(allowlist) == 0 {
		host := strings.TrimPrefix(strings.TrimPrefix(normalized, "https://"), "http://")
		return strings.EqualFold(host, requestHost)
	}

	for _, entry := range allowlist {
		entry = strings.TrimSpace(entry)
		if entry == "*" {
			return true
		}
		if allowedNorm, ok := Normalize(entry); ok && allowedNorm == normalized {
			return true
		}
	}
	return false
}
