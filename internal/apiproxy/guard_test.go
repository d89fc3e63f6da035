package apiproxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/philogos/gemini-playground/internal/metrics"
)

func TestGuard_TimeoutYieldsPlainTextError(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	m := metrics.New()
	g := NewGuard(ForwarderFunc(func(r *http.Request) (*http.Response, error) {
		<-release
		return nil, io.EOF
	}), 50*time.Millisecond, m, nil)

	rec := httptest.NewRecorder()
	start := time.Now()
	g.ServeHTTP(rec, httptest.NewRequest("POST", "/v1/chat/completions", nil))

	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("guard took %v, deadline not enforced", elapsed)
	}
	resp := rec.Result()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/plain;charset=UTF-8" {
		t.Fatalf("content-type=%q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "timed out") {
		t.Fatalf("body=%q, want timeout message", body)
	}
	if m.Get(metrics.APITimeout) != 1 {
		t.Fatalf("expected api_timeout counter increment")
	}
}

func TestGuard_ForwardErrorSurfacedVerbatim(t *testing.T) {
	g := NewGuard(ForwarderFunc(func(r *http.Request) (*http.Response, error) {
		return nil, &StatusError{Status: http.StatusBadGateway, Message: "upstream refused"}
	}), time.Second, metrics.New(), nil)

	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/models", nil))

	resp := rec.Result()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "upstream refused" {
		t.Fatalf("body=%q, want %q", body, "upstream refused")
	}
}

func TestGuard_ForwardErrorWithoutStatusDefaultsTo500(t *testing.T) {
	g := NewGuard(ForwarderFunc(func(r *http.Request) (*http.Response, error) {
		return nil, io.ErrUnexpectedEOF
	}), time.Second, metrics.New(), nil)

	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/models", nil))

	if rec.Result().StatusCode != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Result().StatusCode)
	}
}

func TestGuard_UpstreamResponsePassedThrough(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("try later"))
	}))
	t.Cleanup(backend.Close)

	fwd, err := NewUpstreamForwarder(backend.URL)
	if err != nil {
		t.Fatalf("NewUpstreamForwarder: %v", err)
	}
	g := NewGuard(fwd, time.Second, metrics.New(), nil)

	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, httptest.NewRequest("GET", "/v1/models", nil))

	resp := rec.Result()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status=%d, want 503", resp.StatusCode)
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Fatalf("upstream header dropped")
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "try later" {
		t.Fatalf("body=%q, want %q", body, "try later")
	}
}
