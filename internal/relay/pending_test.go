package relay

import (
	"testing"

	"github.com/gorilla/websocket"
)

func TestPendingBuffer_FIFOAndCapacity(t *testing.T) {
	b := newPendingBuffer(3)

	for i, msg := range []string{"a", "b", "c"} {
		if !b.Append(frame{messageType: websocket.TextMessage, data: []byte(msg)}) {
			t.Fatalf("Append %d rejected below capacity", i)
		}
	}
	if b.Append(frame{messageType: websocket.TextMessage, data: []byte("d")}) {
		t.Fatalf("Append accepted beyond capacity")
	}
	if b.Len() != 3 {
		t.Fatalf("Len=%d, want 3", b.Len())
	}

	drained := b.Drain()
	if len(drained) != 3 {
		t.Fatalf("drained %d frames, want 3", len(drained))
	}
	for i, want := range []string{"a", "b", "c"} {
		if string(drained[i].data) != want {
			t.Fatalf("drained[%d]=%q, want %q", i, drained[i].data, want)
		}
	}
}

func TestPendingBuffer_RejectsAppendAfterDrain(t *testing.T) {
	b := newPendingBuffer(3)
	b.Append(frame{messageType: websocket.TextMessage, data: []byte("a")})
	b.Drain()

	if b.Append(frame{messageType: websocket.TextMessage, data: []byte("b")}) {
		t.Fatalf("Append accepted after drain")
	}
	if got := b.Drain(); len(got) != 0 {
		t.Fatalf("second drain returned %d frames, want 0", len(got))
	}
}
