package relay

import (
	"sync"

	"github.com/gammazero/deque"

	"github.com/odyssey-relay/server/pkg/wire"
)

// mailbox is a bounded, single-reader many-writer outbound packet queue.
// It is the concrete form of spec.md §4.4's "per-session outbound queue":
// push drops (rather than blocks) once full, so a slow consumer never
// delays the goroutine submitting to it. Grounded on gate's use of
// deque.Deque for connectedPlayer's loginPluginMessages queue.
type mailbox struct {
	mu     sync.Mutex
	dq     deque.Deque[*wire.Packet]
	notify chan struct{}
	closed bool
	maxLen int
}

func newMailbox(maxLen int) *mailbox {
	return &mailbox{
		notify: make(chan struct{}, 1),
		maxLen: maxLen,
	}
}

// pushResult distinguishes "mailbox already torn down, nothing to do"
// from "mailbox is full, the owning session must be dropped" so the hub
// never mistakes a session mid-close for a slow consumer.
type pushResult int

const (
	pushed pushResult = iota
	pushClosed
	pushOverflow
)

// push enqueues p, reporting whether it was accepted, silently ignored
// (mailbox already closed), or rejected for capacity (the caller must
// then drop the owning session).
func (m *mailbox) push(p *wire.Packet) pushResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return pushClosed
	}
	if m.dq.Len() >= m.maxLen {
		return pushOverflow
	}
	m.dq.PushBack(p)
	m.signal()
	return pushed
}

// pop blocks until a packet is available or the mailbox is closed and
// drained. ok is false once there is nothing left to deliver.
func (m *mailbox) pop() (*wire.Packet, bool) {
	for {
		m.mu.Lock()
		if m.dq.Len() > 0 {
			p := m.dq.PopFront()
			m.mu.Unlock()
			return p, true
		}
		closed := m.closed
		m.mu.Unlock()
		if closed {
			return nil, false
		}
		<-m.notify
	}
}

func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.signal()
}

func (m *mailbox) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dq.Len()
}

// signal is a non-blocking wakeup of a waiting pop; push calls it with mu
// held, close calls it after releasing mu.
func (m *mailbox) signal() {
	select {
	case m.notify <- struct{}{}:
	default:
	}
}
