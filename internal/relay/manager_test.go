package relay

import (
	"errors"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/philogos/gemini-playground/internal/metrics"
)

func TestSessionManager_EnforcesMaxSessions(t *testing.T) {
	fu := newFakeUpstream(t, true)
	ts, sm := startRelay(t, fu.wsURL(), Config{
		EstablishTimeout: 5 * time.Second,
		MaxSessions:      1,
	})

	first := dialClient(t, ts.URL)
	_ = first

	// Give the handler a moment to register the first session.
	time.Sleep(50 * time.Millisecond)

	// The second client is upgraded, then refused with 1013.
	second := dialClient(t, ts.URL)
	_ = second.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := second.ReadMessage()
	ce, ok := err.(*websocket.CloseError)
	if !ok {
		t.Fatalf("err=%v, want close error", err)
	}
	if ce.Code != websocket.CloseTryAgainLater {
		t.Fatalf("close code=%d, want %d", ce.Code, websocket.CloseTryAgainLater)
	}
	if sm.Metrics().Get(metrics.RelayTooManySessions) != 1 {
		t.Fatalf("expected too_many_sessions counter increment")
	}
	if sm.Len() != 1 {
		t.Fatalf("Len=%d, want 1", sm.Len())
	}
}

func TestSessionManager_CreateAndDeleteTracksLen(t *testing.T) {
	sm := NewSessionManager(Config{}, metrics.New(), nil)
	if sm.Len() != 0 {
		t.Fatalf("Len=%d, want 0", sm.Len())
	}
	sess, err := sm.create(nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if sm.Len() != 1 {
		t.Fatalf("Len=%d, want 1", sm.Len())
	}
	if sess.ID() == "" {
		t.Fatalf("empty session id")
	}
	sm.delete(sess.ID())
	if sm.Len() != 0 {
		t.Fatalf("Len=%d, want 0 after delete", sm.Len())
	}
}

func TestSessionManager_MaxSessionsErrIsSentinel(t *testing.T) {
	sm := NewSessionManager(Config{MaxSessions: 1}, metrics.New(), nil)
	if _, err := sm.create(nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := sm.create(nil)
	if !errors.Is(err, ErrTooManySessions) {
		t.Fatalf("err=%v, want ErrTooManySessions", err)
	}
}
