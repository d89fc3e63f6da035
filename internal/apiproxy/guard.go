// Package apiproxy forwards playground API calls to the upstream HTTP
// endpoint under a hard deadline.
package apiproxy

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/philogos/gemini-playground/internal/metrics"
)

const errorContentType = "text/plain;charset=UTF-8"

// Forwarder is the capability that performs one upstream HTTP call.
type Forwarder interface {
	Forward(r *http.Request) (*http.Response, error)
}

// ForwarderFunc adapts a function to the Forwarder interface.
type ForwarderFunc func(r *http.Request) (*http.Response, error)

func (f ForwarderFunc) Forward(r *http.Request) (*http.Response, error) { return f(r) }

// StatusError is a forward failure carrying the HTTP status to surface to the
// caller. Forward errors without a status default to 500.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// Guard races a forwarded HTTP call against a fixed deadline.
//
// The losing forward call is abandoned rather than cancelled: the result
// channel is buffered so the goroutine delivering a late result exits
// immediately, but the underlying transport call runs to completion. That
// resource trade-off is accepted for simplicity.
type Guard struct {
	forward Forwarder
	timeout time.Duration
	log     *slog.Logger
	metrics *metrics.Metrics
}

func NewGuard(forward Forwarder, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) *Guard {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		forward: forward,
		timeout: timeout,
		log:     logger,
		metrics: m,
	}
}

func (g *Guard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type result struct {
		resp *http.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := g.forward.Forward(r)
		ch <- result{resp: resp, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			g.metrics.Inc(metrics.APIForwardError)
			g.log.Warn("api forward failed", "path", r.URL.Path, "err", res.err)
			status := http.StatusInternalServerError
			var se *StatusError
			if errors.As(res.err, &se) && se.Status != 0 {
				status = se.Status
			}
			writePlain(w, status, res.err.Error())
			return
		}
		defer res.resp.Body.Close()
		copyHeader(w.Header(), res.resp.Header)
		w.WriteHeader(res.resp.StatusCode)
		_, _ = io.Copy(w, res.resp.Body)
		g.metrics.Inc(metrics.APIForwarded)
	case <-timer.C:
		g.metrics.Inc(metrics.APITimeout)
		g.log.Warn("api forward timed out", "path", r.URL.Path, "timeout", g.timeout)
		writePlain(w, http.StatusInternalServerError, "API request timed out")
	}
}

func writePlain(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", errorContentType)
	w.WriteHeader(status)
	_, _ = fmt.Fprint(w, body)
}
