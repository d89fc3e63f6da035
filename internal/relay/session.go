package relay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/philogos/gemini-playground/internal/metrics"
)

type upstreamState int

const (
	stateConnecting upstreamState = iota
	stateOpen
	stateClosed
)

type closeInfo struct {
	code   int
	reason string
}

// Session is one end-to-end relayed connection between a client and the
// upstream streaming endpoint. It owns both sockets, the pending buffer, and
// the establishment timer exclusively.
type Session struct {
	id      string
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Metrics

	client *websocket.Conn

	clientWriteMu   sync.Mutex
	upstreamWriteMu sync.Mutex

	mu           sync.Mutex
	state        upstreamState
	upstream     *websocket.Conn
	pending      *pendingBuffer
	timer        *time.Timer
	timerStopped bool
	dialCancel   context.CancelFunc
	onClose      func()
}

func newSession(id string, client *websocket.Conn, cfg Config, m *metrics.Metrics, logger *slog.Logger, onClose func()) *Session {
	return &Session{
		id:      id,
		cfg:     cfg,
		log:     logger,
		metrics: m,
		client:  client,
		pending: newPendingBuffer(cfg.MaxPending),
		onClose: onClose,
	}
}

func (s *Session) ID() string { return s.id }

// start arms the establishment timer and launches the upstream dial.
func (s *Session) start(target string, dialer *websocket.Dialer) {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		cancel()
		return
	}
	s.dialCancel = cancel
	s.timer = time.AfterFunc(s.cfg.EstablishTimeout, s.establishTimeout)
	s.mu.Unlock()
	go s.connect(ctx, target, dialer)
}

func (s *Session) connect(ctx context.Context, target string, dialer *websocket.Dialer) {
	conn, resp, err := dialer.DialContext(ctx, target, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		s.metrics.Inc(metrics.RelayUpstreamDialFail)
		if ctx.Err() == nil {
			s.log.Error("upstream dial failed", "session_id", s.id, "err", err)
		}
		s.terminate(nil, &closeInfo{websocket.CloseInternalServerErr, "failed to connect to upstream"})
		return
	}

	if !s.upstreamOpened(conn) {
		_ = conn.Close()
		return
	}
	s.readUpstream(conn)
}

// upstreamOpened transitions the session to pass-through mode: it cancels the
// establishment timer and drains the pending buffer to upstream in arrival
// order. It returns false if the session closed while the dial was in flight.
func (s *Session) upstreamOpened(conn *websocket.Conn) bool {
	s.mu.Lock()
	if s.state != stateConnecting {
		s.mu.Unlock()
		return false
	}
	s.state = stateOpen
	s.upstream = conn
	s.stopTimerLocked()
	drained := s.pending.Drain()

	// Holding the upstream write mutex across the drain keeps pass-through
	// sends from overtaking buffered frames.
	s.upstreamWriteMu.Lock()
	s.mu.Unlock()
	for _, f := range drained {
		s.writeFrame(conn, f.messageType, f.data, metrics.RelayFramesToUpstream)
	}
	s.upstreamWriteMu.Unlock()

	s.log.Debug("upstream open", "session_id", s.id, "drained_frames", len(drained))
	return true
}

func (s *Session) readUpstream(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			code, reason := closeCodeFromError(err)
			s.terminate(nil, &closeInfo{code, reason})
			return
		}
		s.forwardToClient(mt, data)
	}
}

// handleClientFrame buffers or forwards one client frame. It returns false
// when the session is over and the caller should stop reading.
func (s *Session) handleClientFrame(mt int, data []byte) bool {
	s.mu.Lock()
	switch s.state {
	case stateConnecting:
		if !s.pending.Append(frame{messageType: mt, data: data}) {
			s.mu.Unlock()
			s.metrics.Inc(metrics.RelayBufferOverflow)
			s.log.Warn("pending buffer full, closing client", "session_id", s.id, "max_pending", s.cfg.MaxPending)
			s.terminate(nil, &closeInfo{websocket.ClosePolicyViolation, "too many pending messages"})
			return false
		}
		s.mu.Unlock()
		s.metrics.Inc(metrics.RelayFramesBuffered)
		return true
	case stateOpen:
		up := s.upstream
		s.mu.Unlock()
		s.send(up, &s.upstreamWriteMu, mt, data, metrics.RelayFramesToUpstream)
		return true
	default:
		s.mu.Unlock()
		return false
	}
}

func (s *Session) forwardToClient(mt int, data []byte) {
	s.send(s.client, &s.clientWriteMu, mt, data, metrics.RelayFramesToClient)
}

// send writes one frame, checking readiness immediately before the write.
// Send errors are logged and swallowed; only close/error events on a socket
// end the session.
func (s *Session) send(conn *websocket.Conn, writeMu *sync.Mutex, mt int, data []byte, counter string) {
	s.mu.Lock()
	closed := s.state == stateClosed
	s.mu.Unlock()
	if closed || conn == nil {
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	s.writeFrame(conn, mt, data, counter)
}

// writeFrame performs the write. Callers hold the connection's write mutex.
func (s *Session) writeFrame(conn *websocket.Conn, mt int, data []byte, counter string) {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
	if err := conn.WriteMessage(mt, data); err != nil {
		s.metrics.Inc(metrics.RelaySendFailure)
		s.log.Debug("frame send failed", "session_id", s.id, "err", err)
		return
	}
	s.metrics.Inc(counter)
}

// clientGone mirrors a client close/error to the upstream socket.
func (s *Session) clientGone(err error) {
	code, reason := closeCodeFromError(err)
	s.terminate(&closeInfo{code, reason}, nil)
}

// establishTimeout reclaims sessions whose upstream never became ready and
// which saw no client activity. Any buffered frame is trusted over the timer.
func (s *Session) establishTimeout() {
	s.mu.Lock()
	if s.state != stateConnecting || s.timerStopped {
		s.mu.Unlock()
		return
	}
	s.timerStopped = true
	if s.pending.Len() > 0 {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.metrics.Inc(metrics.RelayEstablishTimeout)
	s.log.Info("establish timeout, reclaiming idle session", "session_id", s.id)
	s.terminate(nil, &closeInfo{websocket.CloseNormalClosure, "no activity after connection"})
}

// Close tears the session down without sending close frames. It is safe to
// call multiple times; the mirrored-closure paths normally run first.
func (s *Session) Close() {
	s.terminate(nil, nil)
}

// CloseWith announces code/reason on both sockets before closing them.
func (s *Session) CloseWith(code int, reason string) {
	ci := closeInfo{code, reason}
	s.terminate(&ci, &ci)
}

// terminate moves the session to its terminal state: it cancels the dial and
// the timer, optionally announces a close code on each still-open socket, and
// closes both. upstreamClose is mirrored to the upstream socket when it is
// open; clientClose to the client socket. Calls after the first are no-ops.
func (s *Session) terminate(upstreamClose, clientClose *closeInfo) {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return
	}
	wasOpen := s.state == stateOpen
	s.state = stateClosed
	s.stopTimerLocked()
	cancel := s.dialCancel
	s.dialCancel = nil
	up := s.upstream
	s.upstream = nil
	onClose := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if clientClose != nil {
		s.writeClose(s.client, &s.clientWriteMu, clientClose.code, clientClose.reason)
	}
	_ = s.client.Close()
	if wasOpen && up != nil {
		if upstreamClose != nil {
			s.writeClose(up, &s.upstreamWriteMu, upstreamClose.code, upstreamClose.reason)
		}
		_ = up.Close()
	}

	s.metrics.Inc(metrics.RelaySessionClosed)
	if onClose != nil {
		onClose()
	}
}

func (s *Session) writeClose(conn *websocket.Conn, writeMu *sync.Mutex, code int, reason string) {
	writeMu.Lock()
	defer writeMu.Unlock()
	_ = conn.WriteControl(websocket.CloseMessage, closeMessage(code, reason), time.Now().Add(s.cfg.WriteWait))
}

// stopTimerLocked cancels the establishment timer at most once.
func (s *Session) stopTimerLocked() {
	if s.timer != nil && !s.timerStopped {
		s.timer.Stop()
		s.timerStopped = true
	}
}

// closeMessage formats a close frame payload. The reserved codes 1005/1006
// never appear on the wire; they collapse to an empty close payload.
func closeMessage(code int, reason string) []byte {
	switch code {
	case websocket.CloseNoStatusReceived, websocket.CloseAbnormalClosure:
		return websocket.FormatCloseMessage(websocket.CloseNoStatusReceived, "")
	}
	return websocket.FormatCloseMessage(code, reason)
}

// closeCodeFromError extracts the close code/reason from a read error so the
// closure can be mirrored to the other socket.
func closeCodeFromError(err error) (int, string) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text
	}
	return websocket.CloseAbnormalClosure, ""
}
