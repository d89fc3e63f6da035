package apiproxy

import (
	"fmt"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

// Hop-by-hop headers never forwarded upstream or back.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// UpstreamForwarder rebuilds each inbound request against the configured API
// base URL, preserving path and query verbatim.
type UpstreamForwarder struct {
	base   *url.URL
	client *http.Client
}

func NewUpstreamForwarder(apiBaseURL string) (*UpstreamForwarder, error) {
	base, err := url.Parse(apiBaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse api base url %q: %w", apiBaseURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api base url %q: scheme must be http or https", apiBaseURL)
	}
	return &UpstreamForwarder{
		base:   base,
		client: &http.Client{},
	}, nil
}

// Forward sends r's method, path, query, headers, and body to the upstream
// host. It deliberately does not inherit r's context: the Guard abandons slow
// calls instead of cancelling them.
func (f *UpstreamForwarder) Forward(r *http.Request) (*http.Response, error) {
	u := *f.base
	u.Path = r.URL.Path
	u.RawPath = r.URL.RawPath
	u.RawQuery = r.URL.RawQuery

	out, err := http.NewRequest(r.Method, u.String(), r.Body)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	copyHeader(out.Header, r.Header)
	out.Header.Del("Host")

	resp, err := f.client.Do(out)
	if err != nil {
		return nil, fmt.Errorf("forward %s %s: %w", r.Method, r.URL.Path, err)
	}
	return resp, nil
}

func copyHeader(dst, src http.Header) {
	connectionOpts := map[string]struct{}{}
	for _, v := range src.Values("Connection") {
		for _, opt := range strings.Split(v, ",") {
			if opt = strings.TrimSpace(opt); opt != "" {
				connectionOpts[textproto.CanonicalMIMEHeaderKey(opt)] = struct{}{}
			}
		}
	}
	for k, vv := range src {
		canonical := textproto.CanonicalMIMEHeaderKey(k)
		if _, hop := hopByHopHeaders[canonical]; hop {
			continue
		}
		if _, listed := connectionOpts[canonical]; listed {
			continue
		}
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
