package relay

// frame is one message unit exchanged over a socket, text or binary, opaque to
// the relay.
type frame struct {
	messageType int
	data        []byte
}

// pendingBuffer is a bounded FIFO of client frames awaiting the upstream
// connection. It is not safe for concurrent use; the owning Session's mutex
// serializes access.
//
// The buffer is drained at most once. After the drain it is permanently
// discarded and rejects further appends.
type pendingBuffer struct {
	max     int
	frames  []frame
	drained bool
}

func newPendingBuffer(max int) *pendingBuffer {
	return &pendingBuffer{max: max}
}

func (b *pendingBuffer) Len() int { return len(b.frames) }

// Append adds f to the buffer. It returns false when the buffer is at
// capacity or has already been drained.
func (b *pendingBuffer) Append(f frame) bool {
	if b.drained || len(b.frames) >= b.max {
		return false
	}
	b.frames = append(b.frames, f)
	return true
}

// Drain returns all buffered frames in arrival order and discards the buffer.
func (b *pendingBuffer) Drain() []frame {
	frames := b.frames
	b.frames = nil
	b.drained = true
	return frames
}
