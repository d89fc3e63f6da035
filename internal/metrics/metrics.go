package metrics

import "sync"

// Event counter names.
const (
	RelaySessionOpened    = "relay_session_opened"
	RelaySessionClosed    = "relay_session_closed"
	RelayFramesBuffered   = "relay_frames_buffered"
	RelayBufferOverflow   = "relay_buffer_overflow"
	RelayEstablishTimeout = "relay_establish_timeout"
	RelayFramesToUpstream = "relay_frames_to_upstream"
	RelayFramesToClient   = "relay_frames_to_client"
	RelaySendFailure      = "relay_send_failure"
	RelayUpstreamDialFail = "relay_upstream_dial_failure"
	RelayTooManySessions  = "relay_too_many_sessions"

	APIForwarded    = "api_forwarded"
	APITimeout      = "api_timeout"
	APIForwardError = "api_forward_error"

	AssetCacheHit  = "asset_cache_hit"
	AssetCacheMiss = "asset_cache_miss"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// Gateway logic increments named events here; the Prometheus bridge in
// prometheus.go exports a snapshot on scrape. Keeping the registry in-process
// keeps relay and guard behavior testable without a scrape cycle.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	m.mu.Lock()
	if m.m == nil {
		m.m = make(map[string]uint64)
	}
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
